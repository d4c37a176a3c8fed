// Package eventlog reads and writes the append-only weight log.
//
// The log is CSV with a `timestamp,weight_g` header, second-precision local
// timestamps and two-decimal weights. Existing files are never truncated.
package eventlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TimestampLayout is the on-disk timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the first line of every log the writer creates.
var Header = []string{"timestamp", "weight_g"}

var (
	// ErrLogIO marks a failed append or read.
	ErrLogIO = errors.New("log io")

	// ErrMalformedRecord marks a line that is not a timestamp and a weight.
	ErrMalformedRecord = errors.New("malformed record")
)

// Appender records stabilized weights.
type Appender interface {
	Append(ts time.Time, weightG float64) error
}

// File appends records to a CSV file on disk.
type File struct {
	path string
}

// Open prepares path for appending, creating parent directories and the
// header if the file does not exist yet. It reports whether it created the file.
func Open(path string) (*File, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("%w: create log dir: %w", ErrLogIO, err)
	}
	f := &File{path: path}
	created, err := f.ensureHeader()
	if err != nil {
		return nil, false, err
	}
	return f, created, nil
}

// Path returns the log file path.
func (f *File) Path() string {
	return f.path
}

// Append writes one record. The file is reopened on every call, so a log
// moved away by an archiver is recreated with a fresh header.
func (f *File) Append(ts time.Time, weightG float64) error {
	if _, err := f.ensureHeader(); err != nil {
		return err
	}

	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrLogIO, err)
	}
	w := csv.NewWriter(fh)
	w.Write(FormatRecord(ts, weightG))
	w.Flush()
	if err := w.Error(); err != nil {
		fh.Close()
		return fmt.Errorf("%w: write: %w", ErrLogIO, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrLogIO, err)
	}
	return nil
}

// Size returns the current file size, or 0 if it cannot be read.
func (f *File) Size() int64 {
	st, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return st.Size()
}

// FormatRecord renders a record as CSV fields.
func FormatRecord(ts time.Time, weightG float64) []string {
	return []string{ts.Format(TimestampLayout), strconv.FormatFloat(weightG, 'f', 2, 64)}
}

func (f *File) ensureHeader() (bool, error) {
	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: create: %w", ErrLogIO, err)
	}

	w := csv.NewWriter(fh)
	w.Write(Header)
	w.Flush()
	if err := w.Error(); err != nil {
		fh.Close()
		return true, fmt.Errorf("%w: write header: %w", ErrLogIO, err)
	}
	if err := fh.Close(); err != nil {
		return true, fmt.Errorf("%w: close: %w", ErrLogIO, err)
	}
	return true, nil
}
