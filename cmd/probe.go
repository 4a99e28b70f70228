// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var (
	probeTimeout int
	probeRetries int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Poll the unit and wait for a status response",
	Long: `Send a POLL frame and wait for the indoor unit to answer with a full
status frame. The poll is repeated every second until a status arrives,
--retries is exhausted, or the timeout expires.

On success the decoded status is printed.

Examples:
  # Direct UART probe
  tclstat probe --port /dev/ttyUSB0

  # Through a serial-to-websocket bridge
  tclstat probe --url ws://esp-bridge.local/uart

Exit codes:
  0 - Status response received
  1 - No status response before timeout
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 5, "Timeout in seconds")
	probeCmd.Flags().IntVar(&probeRetries, "retries", 3, "Number of POLL frames to send")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnectionError)
	}
	defer conn.Close()

	fmt.Printf("tclstat - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", probeTimeout)

	poll := tclac.EncodePoll()
	send := func() error {
		fmt.Printf("Sending POLL: %s\n", tclac.FormatHex(poll))
		if _, err := conn.Write(poll); err != nil {
			return err
		}
		if f, ok := conn.(tclac.Flusher); ok {
			return f.Flush()
		}
		return nil
	}

	if err := send(); err != nil {
		fmt.Printf("SEND FAILED: %v\n", err)
		os.Exit(exitConnectionError)
	}

	stopRetry := make(chan struct{})
	defer close(stopRetry)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for sent := 1; sent < probeRetries; sent++ {
			select {
			case <-ticker.C:
				if err := send(); err != nil {
					logger.Warn("poll retry failed", zap.Error(err))
					return
				}
			case <-stopRetry:
				return
			}
		}
	}()

	framer := tclac.NewFramer(cfg.Protocol.FramerOptions()...)
	ev, _, err := waitForEvent(conn, framer, time.Duration(probeTimeout)*time.Second,
		func(ev tclac.Event) bool {
			return ev.Kind == tclac.EventFrame && ev.FrameKind == tclac.KindStatus
		})

	switch {
	case errors.Is(err, errWaitTimeout):
		fmt.Printf("\nTIMEOUT: No status response in %ds\n", probeTimeout)
		fmt.Printf("Check wiring (TX/RX swapped?), 9600 8E1 settings and unit power.\n")
		os.Exit(exitTimeout)
	case err != nil:
		fmt.Printf("READ FAILED: %v\n", err)
		os.Exit(exitConnectionError)
	}

	fmt.Printf("\nStatus response received:\n")
	fmt.Print(tclac.FormatEvent(ev))

	// Decode the frame into a fresh state for the summary
	delta, err := tclac.DecodeStatus(ev.Frame.Payload())
	if err != nil {
		fmt.Printf("DECODE FAILED: %v\n", err)
		os.Exit(exitOK)
	}
	state := tclac.DefaultState()
	state.ApplyDelta(delta, logger)
	fmt.Printf("\n%s", tclac.FormatState(state))
	os.Exit(exitOK)
	return nil
}
