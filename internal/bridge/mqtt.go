// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Thermoquad/tclstat/internal/config"
)

// ErrNotConnected is returned while no broker session is open
var ErrNotConnected = errors.New("MQTT client not connected")

const (
	reconnectInterval = 5 * time.Second
	disconnectQuiesce = 250 // ms
)

// Client is a reconnecting MQTT client. Subscriptions survive reconnects.
type Client struct {
	opts *paho.ClientOptions
	log  *zap.Logger

	mu      sync.Mutex
	client  paho.Client
	session int
	subs    map[string]func(message string)
}

// NewClient prepares a client for cfg. Nothing is dialed until Run.
func NewClient(cfg config.MQTTConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}

	c := &Client{opts: opts, log: log, subs: make(map[string]func(string))}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("MQTT disconnected", zap.Error(err))
	})
	return c
}

// Run connects and keeps the session alive until ctx is done
func (c *Client) Run(ctx context.Context) {
	c.connect()

	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.client != nil {
				c.client.Disconnect(disconnectQuiesce)
				c.client = nil
			}
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.mu.Lock()
			open := c.client != nil && c.client.IsConnectionOpen()
			c.mu.Unlock()
			if !open {
				c.connect()
			}
		}
	}
}

func (c *Client) connect() {
	c.log.Info("connecting to MQTT broker", zap.Strings("brokers", brokerURLs(c.opts)))

	client := paho.NewClient(c.opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		c.log.Warn("MQTT connect failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.client = client
	c.session++
	subs := make(map[string]func(string), len(c.subs))
	for topic, cb := range c.subs {
		subs[topic] = cb
	}
	session := c.session
	c.mu.Unlock()

	c.log.Info("connected to MQTT", zap.Int("session", session))
	for topic, cb := range subs {
		if err := c.subscribe(client, topic, cb); err != nil {
			c.log.Warn("resubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// Connected reports whether a broker session is open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnectionOpen()
}

// Publish sends payload to topic and waits for the broker to accept it
func (c *Client) Publish(topic string, qos byte, retained bool, payload string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}

	token := client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

// Subscribe registers callback for topic. The subscription is recorded
// even while disconnected and replayed on the next session.
func (c *Client) Subscribe(topic string, callback func(message string)) error {
	c.mu.Lock()
	c.subs[topic] = callback
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}
	return c.subscribe(client, topic, callback)
}

func (c *Client) subscribe(client paho.Client, topic string, callback func(message string)) error {
	token := client.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
		callback(string(m.Payload()))
	})
	token.Wait()
	return token.Error()
}

func brokerURLs(opts *paho.ClientOptions) []string {
	urls := make([]string, 0, len(opts.Servers))
	for _, u := range opts.Servers {
		urls = append(urls, u.String())
	}
	return urls
}
