// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// tclstat - TCL air conditioner serial protocol toolkit
//
// Monitors, decodes and controls TCL split units over their indoor-unit
// UART, either directly or through a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/tclstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
