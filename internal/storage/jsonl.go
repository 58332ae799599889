package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dexsubgraphs/internal/model"
)

// JSONLines appends JSON values to a file, one per line.
type JSONLines struct {
	path string
	mu   sync.Mutex
}

func NewJSONLines(path string) *JSONLines {
	return &JSONLines{path: path}
}

// Append writes values as JSON lines in a single open/flush cycle.
func (s *JSONLines) Append(values ...any) error {
	if len(values) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, v := range values {
		line, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal line: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// PutLogBatch archives raw log records so they can be replayed later.
func (s *JSONLines) PutLogBatch(logs []model.LogRecord) error {
	values := make([]any, 0, len(logs))
	for _, record := range logs {
		values = append(values, record)
	}
	return s.Append(values...)
}
