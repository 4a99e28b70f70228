// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/internal/config"
	"github.com/Thermoquad/tclstat/internal/logging"
)

// skipConfigAnnotation marks commands that run without loading the config
const skipConfigAnnotation = "tclstat/skip-config"

var (
	configPath string
	logLevel   string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Populated by the root PersistentPreRunE
	cfg    = config.Default()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tclstat",
	Short: "TCL air conditioner serial protocol toolkit",
	Long: `tclstat - monitor, diagnose and control TCL split air conditioners over
their indoor-unit UART.

Provides raw frame logging, error detection, one-shot and interactive
control, capture replay, and a daemon exposing the unit over MQTT (Home
Assistant discovery) and a small REST API.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]   (8E1)
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config, $TCLSTAT_CONFIG or ./tclstat.yaml and may be
overridden with TCLSTAT_<SECTION>_<KEY> environment variables. Flags win over
both.

For WebSocket authentication, the password is read from the TCLSTAT_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./tclstat.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default silent)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// loadConfig merges the config file with the persistent flags and builds
// the shared logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if _, skip := cmd.Annotations[skipConfigAnnotation]; skip {
		return nil
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		loaded.Serial.Port = portName
	}
	if flags.Changed("baud") {
		loaded.Serial.Baud = baudRate
	}
	if flags.Changed("url") {
		loaded.WebSocket.URL = wsURL
	}
	if flags.Changed("username") {
		loaded.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		loaded.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logger = logging.New(cfg.Logging)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}
