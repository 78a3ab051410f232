// Package export writes the per-step battery log consumed by the plotting
// tools.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

// Header is the first row of every log file.
var Header = []string{"ElapsedTime", "SOC", "BatteryVoltage", "InSun"}

// LogRecord is one row of the battery log.
type LogRecord struct {
	Elapsed float64
	SOC     float64
	Voltage float64
	InSun   bool
}

func (r LogRecord) row() []string {
	sun := "0"
	if r.InSun {
		sun = "1"
	}
	return []string{
		strconv.FormatFloat(r.Elapsed, 'f', 2, 64),
		strconv.FormatFloat(r.SOC, 'f', 4, 64),
		strconv.FormatFloat(r.Voltage, 'f', 2, 64),
		sun,
	}
}

// WriteCSV writes the header followed by records.
func WriteCSV(w io.Writer, records []LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a log written by WriteCSV or CSVLog. Header rows are skipped
// wherever they appear, so logs appended by several runs read back whole.
func ReadCSV(r io.Reader) ([]LogRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	var out []LogRecord
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if rec[0] == Header[0] {
			continue
		}
		lr, err := parseRow(rec)
		if err != nil {
			return out, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, lr)
	}
}

func parseRow(rec []string) (LogRecord, error) {
	var (
		lr  LogRecord
		err error
	)
	if lr.Elapsed, err = strconv.ParseFloat(rec[0], 64); err != nil {
		return lr, err
	}
	if lr.SOC, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return lr, err
	}
	if lr.Voltage, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return lr, err
	}
	switch rec[3] {
	case "1":
		lr.InSun = true
	case "0":
	default:
		return lr, fmt.Errorf("invalid InSun value %q", rec[3])
	}
	return lr, nil
}

// CSVLog appends records to a file. The header is written only when the file
// is empty.
type CSVLog struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// OpenCSVLog opens path for appending, creating it if needed. With truncate
// set any previous content is discarded first.
func OpenCSVLog(path string, truncate bool) (*CSVLog, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat log %s: %w", path, err)
	}
	l := &CSVLog{f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := l.write(Header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return l, nil
}

// Append writes one record and flushes it to disk.
func (l *CSVLog) Append(r LogRecord) error {
	return l.write(r.row())
}

func (l *CSVLog) write(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}
