// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package daemon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/tclstat/internal/metrics"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

// fakeConn is an in-memory transport: the test writes device bytes into
// device and inspects what the runner wrote.
type fakeConn struct {
	rx     *io.PipeReader
	device *io.PipeWriter

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	r, w := io.Pipe()
	return &fakeConn{rx: r, device: w}
}

func (c *fakeConn) Read(p []byte) (int, error) { return c.rx.Read(p) }

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.rx.Close()
	return nil
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *fakeConn) sawFrame(want []byte) bool {
	for _, f := range c.frames() {
		if bytes.Equal(f, want) {
			return true
		}
	}
	return false
}

// startRunner runs r until the test ends. wait blocks until Run returns.
func startRunner(t *testing.T, cfg Config) (r *Runner, cancel context.CancelFunc, wait func() error) {
	t.Helper()
	r = NewRunner(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = r.Run(ctx)
		close(done)
	}()
	wait = func() error {
		<-done
		return runErr
	}

	require.Eventually(t, r.Ready, time.Second, 5*time.Millisecond)
	t.Cleanup(func() {
		cancel()
		wait()
	})
	return r, cancel, wait
}

func statusFrame(word uint16) []byte {
	payload := make([]byte, tclac.MinStatusPayload)
	payload[12] = byte(word >> 8)
	payload[13] = byte(word)
	return tclac.BuildFrame(tclac.HeaderFromDevice, tclac.CmdPoll, payload)
}

func TestRunner_TelemetryUpdatesSnapshot(t *testing.T) {
	conn := newFakeConn()
	var seen atomic.Int32
	r := NewRunner(Config{Dial: func(context.Context) (io.ReadWriteCloser, error) { return conn, nil }})
	r.AddListener(func(tclac.DeviceState) { seen.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)
	require.Eventually(t, r.Ready, time.Second, 5*time.Millisecond)

	// 24°C: (24*1.8+32)*374
	_, err := conn.device.Write(statusFrame(28125))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := r.Snapshot().Current()
		return ok
	}, time.Second, 5*time.Millisecond)
	c, _ := r.Snapshot().Current()
	assert.InDelta(t, 24.0, c, 0.05)
	assert.Equal(t, int32(1), seen.Load())
}

func TestRunner_SubmitWritesSet(t *testing.T) {
	conn := newFakeConn()
	reg := metrics.NewRegistry()
	m := metrics.NewProtocolMetrics(reg)
	r, _, _ := startRunner(t, Config{
		Dial:    func(context.Context) (io.ReadWriteCloser, error) { return conn, nil },
		Metrics: m,
	})

	state, err := r.Submit(context.Background(), tclac.ControlRequest{
		Mode:              tclac.Ptr(tclac.ModeCool),
		TargetTemperature: tclac.Ptr(24.0),
	})
	require.NoError(t, err)
	assert.Equal(t, tclac.ModeCool, state.Mode)
	assert.Equal(t, 24.0, state.TargetTemperature)
	assert.Equal(t, state, r.Snapshot())
	assert.False(t, r.Updated().IsZero())

	assert.True(t, conn.sawFrame(tclac.Encode(state)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxFrames.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoweredOn))
}

func TestRunner_SubmitNotRunning(t *testing.T) {
	r := NewRunner(Config{})
	_, err := r.Submit(context.Background(), tclac.ControlRequest{Mode: tclac.Ptr(tclac.ModeCool)})
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, r.Ready())
	assert.Equal(t, tclac.DefaultState(), r.Snapshot())
	assert.True(t, r.Updated().IsZero())
}

func TestRunner_Polls(t *testing.T) {
	conn := newFakeConn()
	startRunner(t, Config{
		Dial:         func(context.Context) (io.ReadWriteCloser, error) { return conn, nil },
		PollInterval: 200 * time.Millisecond,
	})

	assert.Eventually(t, func() bool { return conn.sawFrame(tclac.EncodePoll()) }, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_ReconnectsWithBackoff(t *testing.T) {
	var dials atomic.Int32
	conn := newFakeConn()
	reg := metrics.NewRegistry()
	m := metrics.NewProtocolMetrics(reg)

	r, _, _ := startRunner(t, Config{
		Dial: func(context.Context) (io.ReadWriteCloser, error) {
			if dials.Add(1) < 3 {
				return nil, errors.New("no such device")
			}
			return conn, nil
		},
		BackoffMin: 5 * time.Millisecond,
		BackoffMax: 20 * time.Millisecond,
		Metrics:    m,
	})

	assert.Equal(t, int32(3), dials.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reconnects))
	assert.True(t, r.Ready())
}

func TestRunner_LinkLossReconnects(t *testing.T) {
	var dials atomic.Int32
	conns := []*fakeConn{newFakeConn(), newFakeConn()}

	r, _, _ := startRunner(t, Config{
		Dial: func(context.Context) (io.ReadWriteCloser, error) {
			n := dials.Add(1)
			if int(n) > len(conns) {
				return nil, errors.New("exhausted")
			}
			return conns[n-1], nil
		},
		BackoffMin: 5 * time.Millisecond,
	})

	conns[0].device.CloseWithError(errors.New("unplugged"))
	require.Eventually(t, func() bool { return dials.Load() == 2 && r.Ready() }, time.Second, 5*time.Millisecond)

	_, err := r.Submit(context.Background(), tclac.ControlRequest{Mode: tclac.Ptr(tclac.ModeHeat)})
	require.NoError(t, err)
	assert.Empty(t, conns[0].frames())
	assert.Len(t, conns[1].frames(), 1)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	conn := newFakeConn()
	r, cancel, wait := startRunner(t, Config{
		Dial: func(context.Context) (io.ReadWriteCloser, error) { return conn, nil },
	})

	cancel()
	assert.NoError(t, wait())
	assert.False(t, r.Ready())

	_, err := r.Submit(context.Background(), tclac.ControlRequest{Mode: tclac.Ptr(tclac.ModeCool)})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRunner_Hooks(t *testing.T) {
	conn := newFakeConn()

	var mu sync.Mutex
	var links []bool
	var linkErr error
	var events []tclac.Event

	startRunner(t, Config{
		Dial: func(context.Context) (io.ReadWriteCloser, error) { return conn, nil },
		OnEvent: func(ev tclac.Event, err error) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		},
		OnLink: func(connected bool, err error) {
			mu.Lock()
			defer mu.Unlock()
			links = append(links, connected)
			if err != nil {
				linkErr = err
			}
		},
		BackoffMin: time.Hour,
	})

	_, err := conn.device.Write(statusFrame(28125))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)

	conn.device.CloseWithError(errors.New("unplugged"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(links) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, links)
	assert.ErrorContains(t, linkErr, "unplugged")
	assert.Equal(t, tclac.EventFrame, events[0].Kind)
	assert.Equal(t, tclac.KindStatus, events[0].FrameKind)
}
