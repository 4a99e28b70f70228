// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes protocol counters and device gauges to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

const namespace = "tclstat"

// NewRegistry creates a dedicated registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ProtocolMetrics are the counters and gauges fed by the protocol runner
type ProtocolMetrics struct {
	Frames          *prometheus.CounterVec // labels: kind
	ChecksumErrors  prometheus.Counter
	UnknownCommands prometheus.Counter
	DecodeErrors    *prometheus.CounterVec // labels: reason
	DesyncBytes     prometheus.Gauge
	TxFrames        *prometheus.CounterVec // labels: kind
	TxErrors        prometheus.Counter
	Reconnects      prometheus.Counter

	CurrentTemperature prometheus.Gauge
	TargetTemperature  prometheus.Gauge
	PoweredOn          prometheus.Gauge
}

// NewProtocolMetrics registers and returns the protocol metrics
func NewProtocolMetrics(reg prometheus.Registerer) *ProtocolMetrics {
	m := &ProtocolMetrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames received with a valid checksum, by decoder.",
		}, []string{"kind"}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checksum_errors_total",
			Help:      "Frames discarded for a checksum mismatch.",
		}),
		UnknownCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_commands_total",
			Help:      "Frames discarded for an unknown command id.",
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Well-formed frames whose telemetry was not applied.",
		}, []string{"reason"}),
		DesyncBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desync_bytes",
			Help:      "Bytes discarded while resynchronizing on the frame header.",
		}),
		TxFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_frames_total",
			Help:      "Frames written to the indoor unit.",
		}, []string{"kind"}),
		TxErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_errors_total",
			Help:      "Failed writes to the transport.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Transport reconnect attempts.",
		}),
		CurrentTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_temperature_celsius",
			Help:      "Last accepted room temperature.",
		}),
		TargetTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_temperature_celsius",
			Help:      "Target temperature.",
		}),
		PoweredOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "powered_on",
			Help:      "1 when the unit is in any mode but off.",
		}),
	}
	reg.MustRegister(m.Frames, m.ChecksumErrors, m.UnknownCommands, m.DecodeErrors,
		m.DesyncBytes, m.TxFrames, m.TxErrors, m.Reconnects,
		m.CurrentTemperature, m.TargetTemperature, m.PoweredOn)
	return m
}

// ObserveEvent counts one framer event and the error raised handling it
func (m *ProtocolMetrics) ObserveEvent(ev tclac.Event, err error) {
	switch ev.Kind {
	case tclac.EventChecksumMismatch:
		m.ChecksumErrors.Inc()
		return
	case tclac.EventUnknownCommand:
		m.UnknownCommands.Inc()
		return
	}

	m.Frames.WithLabelValues(kindLabel(ev.FrameKind)).Inc()
	if err != nil {
		m.DecodeErrors.WithLabelValues(errorReason(err)).Inc()
	}
}

// ObserveTx counts one transmitted frame
func (m *ProtocolMetrics) ObserveTx(kind tclac.TxKind) {
	m.TxFrames.WithLabelValues(kind.String()).Inc()
}

// ObserveState updates the device gauges
func (m *ProtocolMetrics) ObserveState(s tclac.DeviceState) {
	if c, ok := s.Current(); ok {
		m.CurrentTemperature.Set(c)
	}
	m.TargetTemperature.Set(s.TargetTemperature)
	if s.PoweredOn() {
		m.PoweredOn.Set(1)
	} else {
		m.PoweredOn.Set(0)
	}
}

// SetDesyncBytes mirrors the framer's running discard count
func (m *ProtocolMetrics) SetDesyncBytes(n uint64) {
	m.DesyncBytes.Set(float64(n))
}

func kindLabel(k tclac.FrameKind) string {
	switch k {
	case tclac.KindStatus:
		return "status"
	case tclac.KindPower:
		return "power"
	case tclac.KindTempResponse:
		return "temp_response"
	case tclac.KindShortStatus:
		return "short_status"
	}
	return "unknown"
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, tclac.ErrPayloadTooShort):
		return "payload_too_short"
	case errors.Is(err, tclac.ErrUnrecognizedFlag):
		return "unrecognized_flag"
	}
	return "other"
}
