// Package accounting implements the sink the dispatcher's accounting
// handler writes to: an append-only CSV detail log, one row per
// Accounting-Request, queryable by any downstream tool that reads CSV.
package accounting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Headers are the CSV column names written once at the top of a fresh
// detail log.
var Headers = []string{
	"timestamp", "client_ip", "user_name", "status_type",
	"session_id", "session_time", "input_octets", "output_octets", "nas_port_id",
}

// Record is one accounting detail-log row.
type Record struct {
	Timestamp    time.Time
	ClientIP     string
	UserName     string
	StatusType   string
	SessionID    string
	SessionTime  uint32
	InputOctets  uint32
	OutputOctets uint32
	NASPortID    string
}

// Writer appends Records to a CSV file, flushing after every row so a
// crash loses at most the in-flight write, never buffered history.
type Writer struct {
	mu sync.Mutex
	f  *os.File
	cw *csv.Writer
}

// Open opens (creating if absent) the detail log at path for append,
// writing the header row only if the file is new.
func Open(path string) (*Writer, error) {
	fi, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening accounting detail log: %w", err)
	}

	w := &Writer{f: f, cw: csv.NewWriter(f)}
	if statErr != nil || fi.Size() == 0 {
		if err := w.cw.Write(Headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing accounting detail log header: %w", err)
		}
		w.cw.Flush()
	}
	return w, nil
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.ClientIP,
		rec.UserName,
		rec.StatusType,
		rec.SessionID,
		formatUint32(rec.SessionTime),
		formatUint32(rec.InputOctets),
		formatUint32(rec.OutputOctets),
		rec.NASPortID,
	}
	if err := w.cw.Write(row); err != nil {
		return fmt.Errorf("writing accounting detail row: %w", err)
	}
	w.cw.Flush()
	return w.cw.Error()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cw.Flush()
	return w.f.Close()
}

func formatUint32(v uint32) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(v), 10)
}
