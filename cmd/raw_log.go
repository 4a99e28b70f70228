// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/internal/capture"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var rawLogRecord string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display TCL AC frames as they arrive.

Each frame is printed with its timestamp, command and decoded payload.
Checksum failures and unknown commands are printed inline. Nothing is
transmitted, so the unit is only heard while another controller polls it.

With --record the received byte stream is also written to a CBOR capture
file that can be fed back through 'tclstat replay'.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Write the received byte stream to a capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var rec *capture.Writer
	if rawLogRecord != "" {
		rec, err = capture.Create(rawLogRecord)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Warn("close capture", zap.Error(err))
			}
			fmt.Printf("\nRecorded %d chunks to %s\n", rec.Count(), rawLogRecord)
		}()
	}

	fmt.Printf("tclstat - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if rec != nil {
		fmt.Printf("Recording: %s\n", rawLogRecord)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	framer := tclac.NewFramer(cfg.Protocol.FramerOptions()...)
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if ctx.Err() != nil {
			return nil
		}
		if n > 0 {
			if rec != nil {
				if err := rec.Rx(buf[:n]); err != nil {
					return err
				}
			}
			for _, ev := range framer.Feed(buf[:n]) {
				fmt.Print(tclac.FormatEvent(ev))
			}
		}
		if err != nil {
			// A closed WebSocket does not come back
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info("connection closed")
				return nil
			}
			logger.Warn("read error", zap.Error(err))
			continue
		}
	}
}
