// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records the raw UART byte stream to a file of CBOR
// records and plays it back.
//
// A capture is a sequence of CBOR maps, one per chunk:
//
//	{1: unix_ms, 2: direction, 3: bytes}
//
// Chunks are stored exactly as read from the transport, so replaying a
// capture exercises the framer's resynchronization the same way the live
// link did.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction of a recorded chunk
type Direction uint8

const (
	DirRx Direction = iota // device -> controller
	DirTx                  // controller -> device
)

func (d Direction) String() string {
	switch d {
	case DirRx:
		return "rx"
	case DirTx:
		return "tx"
	}
	return fmt.Sprintf("dir(%d)", uint8(d))
}

// Record is one captured chunk
type Record struct {
	TimeMs    int64     `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Data      []byte    `cbor:"3,keyasint"`
}

// Time returns the record timestamp
func (r Record) Time() time.Time {
	return time.UnixMilli(r.TimeMs)
}

// Writer appends records to a capture stream. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	enc *cbor.Encoder
	now func() time.Time
	n   int
}

// NewWriter starts a capture on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: cbor.NewEncoder(w), now: time.Now}
}

// Create opens (truncating) a capture file at path
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	return NewWriter(f), nil
}

// Rx records bytes received from the device
func (w *Writer) Rx(data []byte) error {
	return w.write(DirRx, data)
}

// Tx records bytes sent to the device
func (w *Writer) Tx(data []byte) error {
	return w.write(DirTx, data)
}

func (w *Writer) write(dir Direction, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rec := Record{TimeMs: w.now().UnixMilli(), Direction: dir, Data: data}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	w.n++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close closes the underlying writer if it is an io.Closer
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader iterates over the records of a capture stream
type Reader struct {
	dec *cbor.Decoder
	c   io.Closer
}

// NewReader reads a capture from r
func NewReader(r io.Reader) *Reader {
	rd := &Reader{dec: cbor.NewDecoder(r)}
	if c, ok := r.(io.Closer); ok {
		rd.c = c
	}
	return rd
}

// Open opens a capture file
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return NewReader(f), nil
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read capture record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every remaining record
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Close closes the underlying reader if it is an io.Closer
func (r *Reader) Close() error {
	if r.c != nil {
		return r.c.Close()
	}
	return nil
}
