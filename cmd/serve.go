// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/internal/bridge"
	"github.com/Thermoquad/tclstat/internal/capture"
	"github.com/Thermoquad/tclstat/internal/daemon"
	"github.com/Thermoquad/tclstat/internal/httpapi"
	"github.com/Thermoquad/tclstat/internal/metrics"
	"github.com/Thermoquad/tclstat/pkg/tclac"
)

const (
	shutdownTimeout = 5 * time.Second
	mqttWait        = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller as a long-lived service",
	Long: `Drive the indoor unit continuously and expose it to other systems.

The link is polled on the configured interval and re-dialed with
exponential backoff when it drops. Depending on configuration the
service also:
  - mirrors state to MQTT with Home Assistant discovery (mqtt.enable)
  - serves a REST API and Prometheus metrics (http.enable)
  - records the raw byte stream to a capture file (capture.path)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dial, connInfo, err := NewDialer()
	if err != nil {
		return err
	}
	initial, err := cfg.Device.InitialState()
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	protoMetrics := metrics.NewProtocolMetrics(reg)

	var rec *capture.Writer
	if cfg.Capture.Path != "" {
		rec, err = capture.Create(cfg.Capture.Path)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("capture closed", zap.String("path", cfg.Capture.Path), zap.Int("records", rec.Count()))
			rec.Close()
		}()
	}

	runner := daemon.NewRunner(daemon.Config{
		Dial:         dial,
		InitialState: initial,
		PollInterval: cfg.Protocol.PollInterval,
		FramerOpts:   cfg.Protocol.FramerOptions(),
		Log:          logger,
		Metrics:      protoMetrics,
		Capture:      rec,
	})

	ctx, stop := signalContext()
	defer stop()

	logger.Info("starting service", zap.String("connection", connInfo))

	if cfg.MQTT.Enable {
		startBridge(ctx, runner)
	}

	var api *httpapi.Server
	apiErr := make(chan error, 1)
	if cfg.HTTP.Enable {
		api = httpapi.New(cfg.HTTP, runner, metrics.Handler(reg), logger)
		go func() {
			logger.Info("HTTP API listening", zap.String("addr", cfg.HTTP.Addr))
			apiErr <- api.Start()
		}()
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- runner.Run(ctx)
	}()

	select {
	case err = <-runErr:
	case err = <-apiErr:
		if err != nil {
			err = fmt.Errorf("HTTP API: %w", err)
		}
		stop()
		<-runErr
	}

	if api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutErr := api.Shutdown(shutdownCtx); shutErr != nil {
			logger.Warn("HTTP shutdown", zap.Error(shutErr))
		}
	}

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("service stopped")
	return err
}

// startBridge connects to the broker in the background and wires the
// Home Assistant bridge to runner. Discovery is published once the first
// broker session is up; state updates before that are retried later.
func startBridge(ctx context.Context, runner *daemon.Runner) {
	client := bridge.NewClient(cfg.MQTT, logger)
	go client.Run(ctx)

	b := bridge.NewBridge(bridge.Config{
		DeviceName:      cfg.MQTT.DeviceName,
		TopicPrefix:     cfg.MQTT.TopicPrefix,
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		SmoothingWindow: cfg.MQTT.SmoothingWindow,
		Publish:         client.Publish,
		Subscribe:       client.Subscribe,
		Submit: func(req tclac.ControlRequest) error {
			sctx, cancel := context.WithTimeout(ctx, submitTimeout)
			defer cancel()
			_, err := runner.Submit(sctx, req)
			return err
		},
		Log: logger,
	})
	runner.AddListener(b.Update)

	go func() {
		warnAt := time.Now().Add(mqttWait)
		for !client.Connected() {
			if !warnAt.IsZero() && time.Now().After(warnAt) {
				logger.Warn("MQTT broker not reachable yet", zap.String("broker", cfg.MQTT.Broker))
				warnAt = time.Time{}
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
		if err := b.Start(); err != nil {
			logger.Warn("MQTT bridge start", zap.Error(err))
		}
	}()
}
