// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import "errors"

var (
	// ErrWorkerNotFound means the worker executable does not exist or
	// is not executable. The session cannot start; retrying does not
	// help.
	ErrWorkerNotFound = errors.New("supervisor: worker executable not found")

	// ErrConnectTimeout means the worker did not open its channel ends
	// within the connect ceiling.
	ErrConnectTimeout = errors.New("supervisor: timed out connecting to worker")

	// ErrWorkerExited means the worker exited before the handshake
	// completed.
	ErrWorkerExited = errors.New("supervisor: worker exited during handshake")
)
