// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and errors",
	Long: `Track frame errors, malformed data, and anomalous values with statistics.

This command validates each frame and detects:
  - Checksum mismatches and unknown command ids
  - Payloads too short for their command
  - Anomalous telemetry values (room temperature outside -10..60°C,
    unrecognized power flags)
  - Statistics and trends (frame rate, error rate, bytes lost to desync)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// frameMsg carries one framer event, its anomalies and the state after it
type frameMsg struct {
	event            tclac.Event
	validationErrors []tclac.ValidationError
	state            tclac.DeviceState
	dropped          uint64
}

// syncMsg marks the first valid frame
type syncMsg struct {
	invalidBytes uint64
}

// linkClosedMsg reports that the transport went away
type linkClosedMsg struct {
	err error
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// monitorLink decodes the byte stream and hands every event to emit.
// The engine never transmits; it only tracks the state the unit reports.
func monitorLink(conn Connection, emit func(tea.Msg)) {
	engine := tclac.NewEngine(nil,
		tclac.WithLogger(logger),
		tclac.WithFramerOptions(cfg.Protocol.FramerOptions()...),
	)
	synchronized := false
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		for _, ev := range engine.Feed(buf[:n]) {
			if !synchronized && ev.Kind == tclac.EventFrame {
				synchronized = true
				emit(syncMsg{invalidBytes: engine.Framer().Dropped()})
			}
			emit(frameMsg{
				event:            ev,
				validationErrors: tclac.ValidateEvent(ev),
				state:            engine.State(),
				dropped:          engine.Framer().Dropped(),
			})
		}
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				emit(linkClosedMsg{err: err})
				return
			}
			logger.Warn("read error", zap.Error(err))
		}
	}
}

// printValidationErrors prints validation errors for an event
func printValidationErrors(ev tclac.Event, validationErrors []tclac.ValidationError) {
	f := ev.Frame
	timestamp := f.Timestamp().Format("15:04:05.000")
	name := tclac.FormatCommand(f.Command(), ev.FrameKind)

	switch ev.Kind {
	case tclac.EventChecksumMismatch:
		fmt.Printf("[%s] \033[1;31mCHECKSUM ERROR:\033[0m %s (0x%02X)\n", timestamp, name, f.Command())
	case tclac.EventUnknownCommand:
		fmt.Printf("[%s] \033[1;33mUNKNOWN COMMAND:\033[0m 0x%02X\n", timestamp, f.Command())
	default:
		fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X)\n", timestamp, name, f.Command())
		fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")
	}

	for i, err := range validationErrors {
		switch err.Type {
		case tclac.AnomalyChecksum:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case tclac.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if received, ok := err.Details["received"].(int); ok {
				if expected, ok := err.Details["expected"].(int); ok {
					fmt.Printf("    Length: received=%d, expected>=%d\n", received, expected)
				}
			}

		case tclac.AnomalyInvalidTemp:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if temp, ok := err.Details["value"].(float64); ok {
				fmt.Printf("    Temperature=%.1f°C\n", temp)
			}

		case tclac.AnomalyInvalidFlag:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  %s\n", tclac.FormatHex(f.Bytes()))
	fmt.Printf("  >>> FRAME FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(conn Connection, connInfo string) error {
	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	go monitorLink(conn, p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("tclstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := tclac.NewStatistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	ctx, stop := signalContext()
	defer stop()

	msgs := make(chan tea.Msg, 16)
	go monitorLink(conn, func(msg tea.Msg) { msgs <- msg })

	for {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case syncMsg:
				if msg.invalidBytes > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", msg.invalidBytes)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}

			case frameMsg:
				stats.Update(msg.event, msg.validationErrors)
				stats.SetDesyncBytes(msg.dropped)

				if len(msg.validationErrors) > 0 {
					printValidationErrors(msg.event, msg.validationErrors)
				} else if showAll {
					fmt.Print(tclac.FormatEvent(msg.event))
				}

			case linkClosedMsg:
				fmt.Printf("\nConnection closed: %v\n\n", msg.err)
				fmt.Print(stats.String())
				return nil
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case <-ctx.Done():
			fmt.Println()
			fmt.Print(stats.String())
			return nil
		}
	}
}
