// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

// Exit codes shared by the diagnostic commands
const (
	exitOK              = 0
	exitTimeout         = 1
	exitConnectionError = 2
)

var errWaitTimeout = errors.New("timeout")

var packetTestTimeout int

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid frame",
	Long: `Wait for a valid TCL AC frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
complete frame with a matching checksum. Garbage bytes, checksum failures
and unknown commands are counted and skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Nothing is transmitted; use 'tclstat probe' to poll a silent unit.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnectionError)
	}
	defer conn.Close()

	fmt.Printf("tclstat - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	framer := tclac.NewFramer(cfg.Protocol.FramerOptions()...)
	ev, rejected, err := waitForEvent(conn, framer, time.Duration(packetTestTimeout)*time.Second,
		func(ev tclac.Event) bool { return ev.Kind == tclac.EventFrame })

	switch {
	case errors.Is(err, errWaitTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(exitTimeout)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(exitConnectionError)
	}

	if skipped := framer.Dropped(); skipped > 0 || rejected > 0 {
		fmt.Printf("(skipped %d bytes and %d bad frames before sync)\n", skipped, rejected)
	}
	f := ev.Frame
	fmt.Printf("SUCCESS: Received valid frame\n")
	fmt.Printf("  Command: %s (0x%02X)\n", tclac.FormatCommand(f.Command(), ev.FrameKind), f.Command())
	fmt.Printf("  Length: %d bytes\n", f.Length())
	fmt.Printf("  Checksum: 0x%02X\n", f.Checksum())
	os.Exit(exitOK)
	return nil
}

// waitForEvent reads until match accepts an event or the timeout expires.
// It returns the matching event and how many events were passed over.
func waitForEvent(conn Connection, framer *tclac.Framer, timeout time.Duration, match func(tclac.Event) bool) (tclac.Event, int, error) {
	type outcome struct {
		ev      tclac.Event
		skipped int
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		buf := make([]byte, 128)
		skipped := 0
		for {
			n, err := conn.Read(buf)
			for _, ev := range framer.Feed(buf[:n]) {
				if match(ev) {
					done <- outcome{ev: ev, skipped: skipped}
					return
				}
				logger.Debug("skipping event: " + tclac.FormatEvent(ev))
				skipped++
			}
			if err != nil {
				done <- outcome{skipped: skipped, err: err}
				return
			}
		}
	}()

	select {
	case o := <-done:
		return o.ev, o.skipped, o.err
	case <-time.After(timeout):
		return tclac.Event{}, 0, errWaitTimeout
	}
}
