// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Thermoquad/tclstat/internal/httpapi"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var (
	sendDryRun  bool
	sendSyncFor int
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single control request",
	Long: `Encode one control request and send it to the indoor unit.

The SET frame always carries the complete state. The unit's status only
reports the eco/turbo/quiet/display flags and the room temperature, so
the unit is polled for those and every other setting (mode, target, fan,
swing, directions) comes from the flags given or the configured device
defaults. If no status arrives within --sync seconds the defaults are
used for the flags too.

Since the mode is never reported and defaults to off, --mode is
required. Without it the frame would turn the unit off.

Enum values:
  mode:      off, auto, cool, heat, dry, fan_only
  fan:       auto, quiet, low, medium, middle, high, focus, diffuse
  swing:     off, vertical, horizontal, both
  preset:    none, eco, boost, comfort, sleep

Examples:
  tclstat send --port /dev/ttyUSB0 --mode cool --target 24 --fan high
  tclstat send --mode heat --preset eco --dry-run`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addSendFlags(sendCmd.Flags())
}

func addSendFlags(f *pflag.FlagSet) {
	f.String("mode", "", "Mode")
	f.Float64("target", 0, "Target temperature in °C (16-31)")
	f.String("fan", "", "Fan speed")
	f.String("swing", "", "Coarse swing mode")
	f.String("preset", "", "Preset")
	f.String("vertical-swing", "", "Vertical swing: off, up_down, upside, downside")
	f.String("horizontal-swing", "", "Horizontal swing: off, left_right, leftside, center, rightside")
	f.String("vertical-direction", "", "Vertical vane position: last, max_up, up, center, down, max_down")
	f.String("horizontal-direction", "", "Horizontal vane position: last, max_left, left, center, right, max_right")
	for _, name := range []string{"eco", "turbo", "quiet", "health", "sleep", "display", "beeper"} {
		f.Bool(name, false, "Set the "+name+" flag (--"+name+"=false clears it)")
	}
	f.BoolVar(&sendDryRun, "dry-run", false, "Print the encoded frame without opening a connection")
	f.IntVar(&sendSyncFor, "sync", 3, "Seconds to wait for the unit's status before sending")
}

// controlBodyFromFlags copies every flag the user set into a ControlBody
func controlBodyFromFlags(f *pflag.FlagSet) (httpapi.ControlBody, error) {
	var body httpapi.ControlBody

	strs := map[string]**string{
		"mode":                 &body.Mode,
		"fan":                  &body.FanSpeed,
		"swing":                &body.Swing,
		"preset":               &body.Preset,
		"vertical-swing":       &body.VerticalSwing,
		"horizontal-swing":     &body.HorizontalSwing,
		"vertical-direction":   &body.VerticalAirflow,
		"horizontal-direction": &body.HorizontalAirflow,
	}
	for name, dst := range strs {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetString(name)
		if err != nil {
			return body, err
		}
		*dst = &v
	}

	bools := map[string]**bool{
		"eco":     &body.Eco,
		"turbo":   &body.Turbo,
		"quiet":   &body.Quiet,
		"health":  &body.Health,
		"sleep":   &body.Sleep,
		"display": &body.Display,
		"beeper":  &body.Beeper,
	}
	for name, dst := range bools {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetBool(name)
		if err != nil {
			return body, err
		}
		*dst = &v
	}

	if f.Changed("target") {
		v, err := f.GetFloat64("target")
		if err != nil {
			return body, err
		}
		body.TargetTemperature = &v
	}
	return body, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	body, err := controlBodyFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	req, err := body.Request()
	if err != nil {
		return err
	}
	if req.IsEmpty() {
		return errors.New("nothing to send: give at least one setting flag")
	}

	initial, err := cfg.Device.InitialState()
	if err != nil {
		return err
	}
	if err := checkSendMode(initial, req); err != nil {
		return err
	}

	if sendDryRun {
		state := initial
		req.ApplyTo(&state)
		fmt.Print(tclac.FormatState(state))
		fmt.Println()
		fmt.Print(tclac.FormatSetFrame(encodeFor(state)))
		return nil
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Printf("Connection: %s\n", connInfo)

	engine := tclac.NewEngine(conn,
		tclac.WithLogger(logger),
		tclac.WithInitialState(initial),
		tclac.WithFramerOptions(cfg.Protocol.FramerOptions()...),
		tclac.OnTransmit(func(kind tclac.TxKind, frame []byte) {
			if kind == tclac.TxSet {
				fmt.Print(tclac.FormatSetFrame(frame))
			} else {
				fmt.Printf("%s %s\n", kind, tclac.FormatHex(frame))
			}
		}),
	)

	if sendSyncFor > 0 {
		if syncState(conn, engine, time.Duration(sendSyncFor)*time.Second) {
			fmt.Printf("Synced flags and room temperature from unit:\n%s\n", tclac.FormatState(engine.State()))
		} else {
			fmt.Fprintf(os.Stderr, "warning: no status within %ds, sending from configured defaults\n", sendSyncFor)
		}
	}

	if err := checkSendMode(engine.State(), req); err != nil {
		return err
	}
	if err := engine.Apply(req); err != nil {
		return err
	}
	fmt.Printf("\nNew state:\n%s", tclac.FormatState(engine.State()))
	return nil
}

// errModeRequired is returned when a request would power the unit off
// only because the mode fell back to Off
var errModeRequired = errors.New("the unit does not report its mode: give --mode (use --mode off to power off)")

// checkSendMode rejects a request whose resulting mode is Off unless the
// request itself asked for Off.
func checkSendMode(initial tclac.DeviceState, req tclac.ControlRequest) error {
	state := initial
	req.ApplyTo(&state)
	if state.Mode == tclac.ModeOff && req.Mode == nil {
		return errModeRequired
	}
	return nil
}

// syncState polls once and feeds the engine until a full status frame
// has been applied. The reader goroutine is left to die with the
// connection.
func syncState(conn Connection, engine *tclac.Engine, timeout time.Duration) bool {
	if err := engine.Poll(); err != nil {
		logger.Warn("poll failed: " + err.Error())
		return false
	}

	chunks := make(chan []byte, 16)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunks <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				close(chunks)
				return
			}
		}
	}()

	deadline := time.After(timeout)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return false
			}
			for _, ev := range engine.Feed(chunk) {
				if ev.Kind == tclac.EventFrame && ev.FrameKind == tclac.KindStatus {
					return true
				}
			}
		case <-deadline:
			return false
		}
	}
}
