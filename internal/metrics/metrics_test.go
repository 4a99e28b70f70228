// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

func TestObserveEvent(t *testing.T) {
	m := NewProtocolMetrics(NewRegistry())

	m.ObserveEvent(tclac.Event{Kind: tclac.EventFrame, FrameKind: tclac.KindStatus}, nil)
	m.ObserveEvent(tclac.Event{Kind: tclac.EventFrame, FrameKind: tclac.KindPower},
		fmt.Errorf("%w: power flag 0x07", tclac.ErrUnrecognizedFlag))
	m.ObserveEvent(tclac.Event{Kind: tclac.EventFrame, FrameKind: tclac.KindStatus},
		fmt.Errorf("%w: status has 3 bytes", tclac.ErrPayloadTooShort))
	m.ObserveEvent(tclac.Event{Kind: tclac.EventChecksumMismatch}, tclac.ErrChecksumMismatch)
	m.ObserveEvent(tclac.Event{Kind: tclac.EventUnknownCommand}, tclac.ErrUnknownCommand)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Frames.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("power")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("unrecognized_flag")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("payload_too_short")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecksumErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnknownCommands))
}

func TestObserveStateAndTx(t *testing.T) {
	m := NewProtocolMetrics(NewRegistry())

	s := tclac.DefaultState()
	m.ObserveState(s)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PoweredOn))
	assert.Equal(t, 22.0, testutil.ToFloat64(m.TargetTemperature))

	s.Mode = tclac.ModeCool
	s.CurrentTemperature, s.CurrentKnown = 25.5, true
	m.ObserveState(s)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoweredOn))
	assert.Equal(t, 25.5, testutil.ToFloat64(m.CurrentTemperature))

	m.ObserveTx(tclac.TxPoll)
	m.ObserveTx(tclac.TxPoll)
	m.ObserveTx(tclac.TxSet)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxFrames.WithLabelValues("poll")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxFrames.WithLabelValues("set")))

	m.SetDesyncBytes(12)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.DesyncBytes))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewProtocolMetrics(reg)
	m.ChecksumErrors.Inc()

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tclstat_checksum_errors_total 1")
}
