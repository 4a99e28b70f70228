// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging builds the zap logger shared by the CLI and the daemon.
//
// Logging is silent unless a level is configured, either through the
// logging.level key or the TCLSTAT_LOG_LEVEL environment variable.
package logging

import (
	"encoding/hex"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Thermoquad/tclstat/internal/config"
)

// LogLevelEnvVar is consulted when no level is configured.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "TCLSTAT_LOG_LEVEL"

// maxDumpBytes caps HexDump output
const maxDumpBytes = 256

// New builds a logger from cfg. With no level configured it returns a
// no-op logger so CLI output stays clean.
func New(cfg config.LoggingConfig) *zap.Logger {
	level := cfg.Level
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		return zap.NewNop()
	}

	return zap.New(newCore(cfg, parseLevel(level)), zap.AddCaller())
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newCore(cfg config.LoggingConfig, level zapcore.Level) zapcore.Core {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "json" {
		encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	// Logs go to stderr so they never interleave with command output
	ws := zapcore.AddSync(os.Stderr)
	if cfg.File.Filename != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(lj))
	}

	return zapcore.NewCore(encoder, ws, level)
}

// HexDump renders raw bytes for a log field, truncated to 256 bytes
func HexDump(data []byte) string {
	if len(data) > maxDumpBytes {
		return hex.EncodeToString(data[:maxDumpBytes]) + "..."
	}
	return hex.EncodeToString(data)
}

// Bytes is a zap field carrying a hex dump of data
func Bytes(key string, data []byte) zap.Field {
	return zap.String(key, HexDump(data))
}
