// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package daemon runs the protocol engine against a live transport.
//
// The Runner owns the tclac.Engine on a single goroutine: received bytes,
// poll ticks and control requests are all serialized through one select
// loop, so the engine never needs a lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/internal/capture"
	"github.com/Thermoquad/tclstat/internal/logging"
	"github.com/Thermoquad/tclstat/internal/metrics"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

var (
	// ErrNotRunning is returned by Submit when Run is not active
	ErrNotRunning = errors.New("runner not running")
	// ErrNotConnected is returned by Submit while the transport is down
	ErrNotConnected = errors.New("transport not connected")
)

const (
	DefaultBackoffMin = time.Second
	DefaultBackoffMax = 30 * time.Second

	minTick      = 100 * time.Millisecond
	readBufSize  = 256
	chunkBacklog = 16
)

// Dialer opens the byte transport to the indoor unit
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// Listener receives every state change, on the runner goroutine
type Listener func(tclac.DeviceState)

// Config wires a Runner
type Config struct {
	Dial         Dialer
	InitialState tclac.DeviceState
	PollInterval time.Duration
	FramerOpts   []tclac.FramerOption
	BackoffMin   time.Duration
	BackoffMax   time.Duration

	Log     *zap.Logger
	Metrics *metrics.ProtocolMetrics // optional
	Capture *capture.Writer          // optional

	// Optional hooks, called on the runner goroutine
	OnEvent func(ev tclac.Event, err error)
	OnLink  func(connected bool, err error)
}

type result struct {
	state tclac.DeviceState
	err   error
}

type request struct {
	req   tclac.ControlRequest
	reply chan result
}

// Runner drives a tclac.Engine from a single goroutine
type Runner struct {
	cfg       Config
	log       *zap.Logger
	engine    *tclac.Engine
	snapshot  *Snapshot
	requests  chan request
	listeners []Listener

	running   atomic.Bool
	connected atomic.Bool
	start     time.Time
}

// NewRunner creates a runner. Listeners must be added before Run.
func NewRunner(cfg Config) *Runner {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultBackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = DefaultBackoffMax
	}
	if cfg.InitialState == (tclac.DeviceState{}) {
		cfg.InitialState = tclac.DefaultState()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = tclac.DefaultPollIntervalMs * time.Millisecond
	}

	r := &Runner{
		cfg:      cfg,
		log:      cfg.Log,
		snapshot: NewSnapshot(cfg.InitialState),
		requests: make(chan request),
	}
	r.engine = tclac.NewEngine(nil,
		tclac.WithLogger(cfg.Log),
		tclac.WithInitialState(cfg.InitialState),
		tclac.WithPollInterval(cfg.PollInterval),
		tclac.WithFramerOptions(cfg.FramerOpts...),
		tclac.OnChange(r.publish),
		tclac.OnEvent(r.observe),
		tclac.OnTransmit(r.transmitted),
	)
	return r
}

// AddListener registers a state listener
func (r *Runner) AddListener(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Snapshot returns the latest published state
func (r *Runner) Snapshot() tclac.DeviceState {
	return r.snapshot.Get()
}

// Updated returns when the published state last changed; zero if never
func (r *Runner) Updated() time.Time {
	return r.snapshot.Updated()
}

// Ready reports whether the runner is attached to a transport
func (r *Runner) Ready() bool {
	return r.running.Load() && r.connected.Load()
}

// Submit applies req on the runner goroutine and waits until the resulting
// frame has been written. It returns the state after the request.
func (r *Runner) Submit(ctx context.Context, req tclac.ControlRequest) (tclac.DeviceState, error) {
	if !r.running.Load() {
		return tclac.DeviceState{}, ErrNotRunning
	}

	rq := request{req: req, reply: make(chan result, 1)}
	select {
	case r.requests <- rq:
	case <-ctx.Done():
		return tclac.DeviceState{}, ctx.Err()
	}

	select {
	case res := <-rq.reply:
		return res.state, res.err
	case <-ctx.Done():
		return tclac.DeviceState{}, ctx.Err()
	}
}

// Run connects, services the link and reconnects with exponential backoff
// until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("runner already running")
	}
	defer r.running.Store(false)

	r.start = time.Now()
	backoff := r.cfg.BackoffMin

	for {
		conn, err := r.cfg.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Warn("connect failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.Reconnects.Inc()
			}
			if !r.idle(ctx, backoff) {
				return nil
			}
			backoff = min(2*backoff, r.cfg.BackoffMax)
			continue
		}

		backoff = r.cfg.BackoffMin
		r.log.Info("transport connected")
		r.link(true, nil)
		err = r.session(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		r.log.Warn("transport lost", zap.Error(err))
		r.link(false, err)
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.Reconnects.Inc()
		}
		if !r.idle(ctx, backoff) {
			return nil
		}
	}
}

// idle waits d while rejecting control requests. It returns false if ctx
// ended first.
func (r *Runner) idle(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case rq := <-r.requests:
			rq.reply <- result{state: r.engine.State(), err: ErrNotConnected}
		}
	}
}

func (r *Runner) session(ctx context.Context, conn io.ReadWriteCloser) error {
	r.engine.SetWriter(conn)
	r.connected.Store(true)
	defer func() {
		r.connected.Store(false)
		r.engine.SetWriter(nil)
		conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	chunks := make(chan []byte, chunkBacklog)
	readErr := make(chan error, 1)
	go readLoop(conn, chunks, readErr, done)

	tick := r.cfg.PollInterval / 5
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case chunk := <-chunks:
			if r.cfg.Capture != nil {
				if err := r.cfg.Capture.Rx(chunk); err != nil {
					r.log.Warn("capture failed", zap.Error(err))
				}
			}
			r.log.Debug("rx", logging.Bytes("data", chunk))
			r.engine.Feed(chunk)
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.SetDesyncBytes(r.engine.Framer().Dropped())
			}

		case err := <-readErr:
			return fmt.Errorf("read: %w", err)

		case <-ticker.C:
			if err := r.engine.Tick(time.Since(r.start).Milliseconds()); err != nil {
				r.txFailed(err)
				return err
			}

		case rq := <-r.requests:
			err := r.engine.Apply(rq.req)
			rq.reply <- result{state: r.engine.State(), err: err}
			if err != nil {
				r.txFailed(err)
				return err
			}
		}
	}
}

func readLoop(conn io.Reader, chunks chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	buf := make([]byte, readBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			readErr <- err
			return
		}
	}
}

func (r *Runner) txFailed(err error) {
	r.log.Warn("transmit failed", zap.Error(err))
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.TxErrors.Inc()
	}
}

func (r *Runner) publish(s tclac.DeviceState) {
	r.snapshot.Set(s)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.ObserveState(s)
	}
	for _, l := range r.listeners {
		l(s)
	}
}

func (r *Runner) observe(ev tclac.Event, err error) {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.ObserveEvent(ev, err)
	}
	if r.cfg.OnEvent != nil {
		r.cfg.OnEvent(ev, err)
	}
}

func (r *Runner) link(connected bool, err error) {
	if r.cfg.OnLink != nil {
		r.cfg.OnLink(connected, err)
	}
}

func (r *Runner) transmitted(kind tclac.TxKind, frame []byte) {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.ObserveTx(kind)
	}
	if r.cfg.Capture != nil {
		if err := r.cfg.Capture.Tx(frame); err != nil {
			r.log.Warn("capture failed", zap.Error(err))
		}
	}
}
