// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// TxKind identifies an outbound frame
type TxKind int

const (
	TxSet TxKind = iota
	TxPowerOff
	TxPoll
)

func (k TxKind) String() string {
	switch k {
	case TxSet:
		return "set"
	case TxPowerOff:
		return "power_off"
	case TxPoll:
		return "poll"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Flusher is implemented by transports that buffer writes
type Flusher interface {
	Flush() error
}

// Engine is the protocol engine: it owns the framer, the poller and the
// device state. It is not safe for concurrent use; callers serialize Feed,
// Tick and Apply on a single goroutine.
type Engine struct {
	framer *Framer
	poller *Poller
	state  DeviceState
	out    io.Writer
	log    *zap.Logger

	onChange   func(DeviceState)
	onEvent    func(Event, error)
	onTransmit func(TxKind, []byte)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithInitialState replaces DefaultState as the starting state
func WithInitialState(s DeviceState) Option {
	return func(e *Engine) {
		e.state = s
	}
}

// WithPollInterval overrides the 5 second poll cadence
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.poller = NewPoller(d)
	}
}

// WithFramerOptions passes options through to the engine's framer
func WithFramerOptions(opts ...FramerOption) Option {
	return func(e *Engine) {
		e.framer = NewFramer(opts...)
	}
}

// OnChange registers the state-changed hook. It receives a copy.
func OnChange(fn func(DeviceState)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// OnEvent registers a hook invoked for every framer event together with
// the error (if any) raised while handling it.
func OnEvent(fn func(Event, error)) Option {
	return func(e *Engine) {
		e.onEvent = fn
	}
}

// OnTransmit registers a hook invoked after every successful write
func OnTransmit(fn func(TxKind, []byte)) Option {
	return func(e *Engine) {
		e.onTransmit = fn
	}
}

// NewEngine creates an engine writing to out. A nil writer turns every
// transmission into a no-op, which is useful for replays.
func NewEngine(out io.Writer, opts ...Option) *Engine {
	e := &Engine{
		framer: NewFramer(),
		poller: NewPoller(DefaultPollIntervalMs * time.Millisecond),
		state:  DefaultState(),
		out:    out,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a snapshot of the device state
func (e *Engine) State() DeviceState {
	return e.state
}

// SetWriter swaps the transport (e.g. after a reconnect) and discards any
// partial frame left from the previous link.
func (e *Engine) SetWriter(out io.Writer) {
	e.out = out
	e.framer.Reset()
}

// Framer exposes the engine's framer for diagnostics
func (e *Engine) Framer() *Framer {
	return e.framer
}

// Feed ingests a chunk of received bytes and applies every complete frame
// to the state in stream order. It returns the events produced.
func (e *Engine) Feed(chunk []byte) []Event {
	before := e.framer.Dropped()
	events := e.framer.Feed(chunk)
	if skipped := e.framer.Dropped() - before; skipped > 0 {
		e.log.Warn("resynchronized",
			zap.Uint64("total_dropped", e.framer.Dropped()),
			zap.Error(fmt.Errorf("%w: skipped %d bytes", ErrFramingDesync, skipped)))
	}
	for _, ev := range events {
		err := e.handle(ev)
		if e.onEvent != nil {
			e.onEvent(ev, err)
		}
	}
	return events
}

func (e *Engine) handle(ev Event) error {
	frame := ev.Frame
	if err := ev.Err(); err != nil {
		e.log.Warn("frame discarded",
			zap.Uint8("command", frame.Command()),
			zap.Int("length", len(frame.Payload())),
			zap.Error(err))
		return err
	}

	if ev.FrameKind == KindShortStatus {
		e.log.Debug("short status ignored", zap.Int("length", len(frame.Payload())))
		return nil
	}

	delta, err := Decode(ev.FrameKind, frame.Payload())
	if err != nil {
		e.log.Warn("telemetry not applied",
			zap.Uint8("command", frame.Command()),
			zap.Error(err))
		return err
	}

	if e.state.ApplyDelta(delta, e.log) {
		e.log.Debug("state updated",
			zap.Uint8("command", frame.Command()),
			zap.Stringer("mode", e.state.Mode),
			zap.Float64("target", e.state.TargetTemperature),
			zap.Float64("current", e.state.CurrentTemperature),
			zap.Bool("eco", e.state.Eco),
			zap.Bool("turbo", e.state.Turbo),
			zap.Bool("quiet", e.state.Quiet))
		e.notify()
	}
	return nil
}

// Tick advances the poll clock. nowMs must come from a monotonic source.
func (e *Engine) Tick(nowMs int64) error {
	if !e.poller.Due(nowMs) {
		return nil
	}
	return e.Poll()
}

// Poll sends a status poll immediately without touching the poll clock
func (e *Engine) Poll() error {
	return e.send(TxPoll, EncodePoll())
}

// Apply applies a control request, notifies the host and transmits either
// the full SET frame or, if the resulting mode is Off, the power-off frame.
func (e *Engine) Apply(req ControlRequest) error {
	req.ApplyTo(&e.state)
	e.notify()

	if e.state.Mode == ModeOff {
		return e.send(TxPowerOff, EncodePowerOff())
	}
	return e.send(TxSet, Encode(e.state))
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange(e.state)
	}
}

func (e *Engine) send(kind TxKind, frame []byte) error {
	if e.out == nil {
		return nil
	}

	e.log.Debug("transmit", zap.Stringer("kind", kind), zap.Int("length", len(frame)), zap.String("frame", FormatHex(frame)))
	if _, err := e.out.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", kind, err)
	}

	if f, ok := e.out.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush %s frame: %w", kind, err)
		}
	}

	if e.onTransmit != nil {
		e.onTransmit(kind, frame)
	}
	return nil
}
