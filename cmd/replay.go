// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tclstat/internal/capture"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var (
	replayErrorsOnly bool
	replayHideTx     bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a recorded capture offline",
	Long: `Replay a capture written by 'raw_log --record' or 'serve' with
capture.path set.

Received chunks are run through the framer exactly as they were read
from the link, so desync and split frames replay faithfully. Transmitted
frames are listed in order. A summary of the final reported state and
the frame statistics is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only print frames that fail validation")
	replayCmd.Flags().BoolVar(&replayHideTx, "hide-tx", false, "Do not print transmitted frames")
}

func runReplay(cmd *cobra.Command, args []string) error {
	r, err := capture.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	recs, err := r.ReadAll()
	if err != nil {
		// keep what decoded; a capture cut short by a crash is still useful
		fmt.Fprintf(os.Stderr, "warning: %v (replaying %d records)\n", err, len(recs))
	}

	state, stats := replayRecords(os.Stdout, recs)

	fmt.Println()
	fmt.Print(tclac.FormatState(state))
	fmt.Println()
	fmt.Print(stats.String())
	return nil
}

// replayRecords decodes recs in order, printing each event and sent frame
// to w, and returns the final reported state and the frame statistics.
func replayRecords(w io.Writer, recs []capture.Record) (tclac.DeviceState, *tclac.Statistics) {
	engine := tclac.NewEngine(nil,
		tclac.WithLogger(logger),
		tclac.WithFramerOptions(cfg.Protocol.FramerOptions()...),
	)
	stats := tclac.NewStatistics()

	for _, rec := range recs {
		ts := rec.Time().Format("15:04:05.000")
		switch rec.Direction {
		case capture.DirTx:
			stats.AddTx()
			if !replayHideTx && !replayErrorsOnly {
				fmt.Fprintf(w, "[%s] TX %s\n", ts, tclac.FormatHex(rec.Data))
			}

		case capture.DirRx:
			for _, ev := range engine.Feed(rec.Data) {
				validationErrors := tclac.ValidateEvent(ev)
				stats.Update(ev, validationErrors)

				if replayErrorsOnly && len(validationErrors) == 0 {
					continue
				}
				fmt.Fprintf(w, "[%s] RX ", ts)
				fmt.Fprint(w, tclac.FormatEvent(ev))
				for _, verr := range validationErrors {
					fmt.Fprintf(w, "  ! %s\n", verr.Message)
				}
			}
		}
	}
	stats.SetDesyncBytes(engine.Framer().Dropped())
	return engine.State(), stats
}
