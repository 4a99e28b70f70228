// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/Thermoquad/tclstat/internal/config"
	"github.com/Thermoquad/tclstat/internal/daemon"
)

// PasswordEnvVar supplies the WebSocket password without prompting
const PasswordEnvVar = "TCLSTAT_PASSWORD"

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Flush blocks until every written byte has left the UART
func (s *SerialConnection) Flush() error {
	return s.port.Drain()
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// Drain the current message first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		// The bridge forwards UART bytes as binary messages only
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens the UART described by sc (9600 8E1 by default)
func OpenSerialConnection(sc config.SerialConfig) (Connection, error) {
	mode, err := sc.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(sc.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", sc.Port, err)
	}

	if sc.ReadTimeout > 0 {
		if err := port.SetReadTimeout(sc.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", sc.Port, err)
		}
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on
// the merged configuration. The WebSocket URL wins when both are set.
func OpenConnection() (Connection, string, error) {
	password := ""
	if cfg.WebSocket.URL != "" && cfg.WebSocket.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, "", err
		}
	}
	return openWith(context.Background(), password)
}

func openWith(ctx context.Context, password string) (Connection, string, error) {
	if ws := cfg.WebSocket; ws.URL != "" {
		conn, err := OpenWebSocketConnection(ctx, ws.URL, ws.Username, password, ws.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", ws.URL), nil
	}

	if sc := cfg.Serial; sc.Port != "" {
		conn, err := OpenSerialConnection(sc)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud %d%s%d", sc.Port, sc.Baud, sc.DataBits, strings.ToUpper(sc.Parity[:1]), sc.StopBits), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}

// NewDialer returns a reconnecting dialer for the daemon. The password is
// resolved once so reconnects never prompt.
func NewDialer() (daemon.Dialer, string, error) {
	if cfg.WebSocket.URL == "" && cfg.Serial.Port == "" {
		return nil, "", errors.New("either --port or --url must be specified")
	}

	password := ""
	if cfg.WebSocket.URL != "" && cfg.WebSocket.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, "", err
		}
	}

	info := fmt.Sprintf("Serial: %s @ %d baud", cfg.Serial.Port, cfg.Serial.Baud)
	if cfg.WebSocket.URL != "" {
		info = fmt.Sprintf("WebSocket: %s", cfg.WebSocket.URL)
	}

	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		conn, _, err := openWith(ctx, password)
		return conn, err
	}
	return dial, info, nil
}
