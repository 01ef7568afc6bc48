package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/andywolf/ctxbudget/internal/budget"
)

// FileSink appends Records to a JSONL file. It is safe for concurrent use
// from multiple goroutines.
type FileSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// DefaultFilename is the default filename for the events file.
const DefaultFilename = "events.jsonl"

// NewFileSink creates a FileSink writing to dir/events.jsonl. If the file
// already exists, new records are appended.
func NewFileSink(dir string) (*FileSink, error) {
	path := filepath.Join(dir, DefaultFilename)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}

	return &FileSink{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Write appends a batch of records, one JSON line each.
func (s *FileSink) Write(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		if _, err := s.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		if err := s.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}

	return nil
}

// WriteOne appends a single record.
func (s *FileSink) WriteOne(rec Record) error {
	return s.Write([]Record{rec})
}

// Flush flushes any buffered data to the underlying file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Close flushes any remaining data and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	if err := s.writer.Flush(); err != nil {
		// Still try to close the file even if flush fails
		_ = s.file.Close()
		s.file = nil
		return fmt.Errorf("failed to flush before close: %w", err)
	}

	if err := s.file.Close(); err != nil {
		s.file = nil
		return fmt.Errorf("failed to close events file: %w", err)
	}

	s.file = nil
	return nil
}

// Path returns the path to the events file.
func (s *FileSink) Path() string {
	return s.path
}

// SinkObserver adapts a FileSink into a budget.Observer, stamping each
// record with the scheduler id. Write errors are reported through onErr
// since observer delivery has no error channel; a nil onErr drops them.
type SinkObserver struct {
	sink        *FileSink
	schedulerID string
	onErr       func(error)
}

// NewSinkObserver wraps a FileSink for registration with a scheduler.
func NewSinkObserver(sink *FileSink, schedulerID string, onErr func(error)) *SinkObserver {
	return &SinkObserver{sink: sink, schedulerID: schedulerID, onErr: onErr}
}

// HandleEvent persists one scheduler notification.
func (o *SinkObserver) HandleEvent(e budget.Event) {
	if err := o.sink.WriteOne(FromEvent(e, o.schedulerID)); err != nil && o.onErr != nil {
		o.onErr(err)
	}
}

// ReadRecords reads all records from a JSONL file.
func ReadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []Record
	scanner := bufio.NewScanner(file)

	// Large Metadata payloads can produce long lines (1MB max).
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse event on line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	return records, nil
}

// FilterByType filters records by event type.
func FilterByType(records []Record, types ...budget.EventType) []Record {
	if len(types) == 0 {
		return records
	}

	typeSet := make(map[budget.EventType]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	var filtered []Record
	for _, rec := range records {
		if typeSet[rec.Type] {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
