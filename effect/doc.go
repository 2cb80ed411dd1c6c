// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package effect is the worker's boundary to the legacy effect module.
//
// A module exposes an [EntryPoint] under the symbol "Main" (checked
// first) or "VSTPluginMain". The entry point receives the [Handle] the
// worker reserved for it and the shared [HostCallback], and returns an
// [Effect] whose Magic must be [Magic]. Everything the worker does to the
// module afterwards goes through the Effect methods; the module reaches
// back to the host only through the callback.
//
// The [Registry] maps each Handle to the [HostContext] that answers its
// callbacks. A module that calls the host from inside its entry point,
// before the worker has validated it and attached the context, gets 0
// for every query.
//
// [Open] runs the load sequence (resolve, validate, attach, open) and
// returns an [Instance]; [Instance.Close] runs mains-off and close and
// releases the handle. [Loader] implementations resolve a path to an
// entry point: [PluginLoader] opens Go plugin shared objects,
// [BuiltinLoader] serves the modules compiled into the worker, and
// [ChainLoader] tries several in order.
package effect
