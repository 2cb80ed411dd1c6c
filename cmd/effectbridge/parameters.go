// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"
)

type parameterSetting struct {
	index int
	value float32
}

// parseParameters parses "index=value" flags. Values are normalized to
// [0, 1].
func parseParameters(args []string) ([]parameterSetting, error) {
	settings := make([]parameterSetting, 0, len(args))
	for _, arg := range args {
		indexText, valueText, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q: want index=value", arg)
		}
		index, err := strconv.Atoi(strings.TrimSpace(indexText))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("parameter %q: index must be a non-negative integer", arg)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(valueText), 32)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", arg, err)
		}
		if value < 0 || value > 1 {
			return nil, fmt.Errorf("parameter %q: value must be in [0, 1]", arg)
		}
		settings = append(settings, parameterSetting{index: index, value: float32(value)})
	}
	return settings, nil
}
