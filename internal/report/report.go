// Package report persists the output of a list/prepare step so that
// the paired execute/update step can replay it later without
// re-querying the source of truth, possibly under different
// credentials. Reports are plain JSON files; large prepare outputs
// are split into JSONL batch files.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// Report is an ordered sequence of work items produced by a prepare
// step. Items are immutable once written. There is no schema
// versioning.
type Report struct {
	Identifier string            `json:"identifier"`
	ExportedAt time.Time         `json:"exportedAt"`
	Count      int               `json:"count"`
	Items      []json.RawMessage `json:"items"`
}

// New builds a report over pre-marshalled items.
func New(identifier string, items []json.RawMessage) *Report {
	return &Report{
		Identifier: identifier,
		ExportedAt: time.Now().UTC(),
		Count:      len(items),
		Items:      items,
	}
}

// WriteJSON writes any report-shaped value as indented JSON.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads a report file into v. A missing or malformed file is
// a validation error: the execute step cannot proceed without a
// well-formed report from the prepare step.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewValidationError("report file not readable").
			WithCause(err).
			WithDetail("path", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.NewValidationError("malformed report file").
			WithCause(err).
			WithDetail("path", path)
	}
	return nil
}

// BatchWriter writes sequentially numbered JSONL batch files into a
// folder, one JSON document per line.
type BatchWriter struct {
	folder  string
	counter int
}

// NewBatchWriter creates the output folder if needed.
func NewBatchWriter(folder string) (*BatchWriter, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("create output folder %s: %w", folder, err)
	}
	return &BatchWriter{folder: folder}, nil
}

// WriteBatch writes one batch file and advances the counter.
func (w *BatchWriter) WriteBatch(items []interface{}) (string, error) {
	path := filepath.Join(w.folder, fmt.Sprintf("batch_%d.jsonl", w.counter))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create batch file %s: %w", path, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return "", fmt.Errorf("marshal batch item: %w", err)
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			return "", fmt.Errorf("write batch file %s: %w", path, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("flush batch file %s: %w", path, err)
	}

	w.counter++
	return path, nil
}

// Batches returns the JSONL batch files in a folder in name order.
func Batches(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, apperrors.NewValidationError("input folder not readable").
			WithCause(err).
			WithDetail("path", folder)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jsonl") {
			files = append(files, filepath.Join(folder, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadBatch decodes every line of a JSONL batch file.
func ReadBatch[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewValidationError("batch file not readable").
			WithCause(err).
			WithDetail("path", path)
	}
	defer file.Close()

	var items []T
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, apperrors.NewValidationError("malformed batch line").
				WithCause(err).
				WithDetail("path", path)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file %s: %w", path, err)
	}
	return items, nil
}

// MarkComplete moves a processed batch file into a complete/
// subfolder next to it.
func MarkComplete(path string) error {
	folder := filepath.Dir(path)
	completeFolder := filepath.Join(folder, "complete")
	if err := os.MkdirAll(completeFolder, 0755); err != nil {
		return fmt.Errorf("create complete folder: %w", err)
	}
	target := filepath.Join(completeFolder, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("move batch file to %s: %w", target, err)
	}
	return nil
}
