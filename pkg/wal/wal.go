// Package wal provides an append-only write-ahead log of JSON records.
// The in-memory store logs every committed ledger mutation here and replays
// the file on startup to rebuild its state.
package wal

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// fileMode is rw-r--r--; the log holds no secrets.
const fileMode fs.FileMode = 0644

type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// NewWAL opens (or creates) the log at path for appending.
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write appends one record and fsyncs before returning. A commit is only
// acknowledged after the record is durable.
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// ReadAll replays every record from the start of the file through callback,
// one raw JSON document at a time, so the whole log never sits in memory.
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	return w.file.Close()
}
