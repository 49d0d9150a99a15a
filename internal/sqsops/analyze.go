package sqsops

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

var exceptionPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9_.$]*(?:Exception|Error)\b`)

// bodyPrefixLength groups messages by the leading part of their body.
const bodyPrefixLength = 50

// Analysis summarizes the messages of a drained queue folder.
type Analysis struct {
	TotalMessages int            `json:"totalMessages"`
	Files         int            `json:"files"`
	ByException   map[string]int `json:"byException"`
	ByBodyPrefix  map[string]int `json:"byBodyPrefix"`
	BySender      map[string]int `json:"bySender"`
}

// TopExceptions returns the exception names by descending count.
func (a *Analysis) TopExceptions() []string {
	names := make([]string, 0, len(a.ByException))
	for name := range a.ByException {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if a.ByException[names[i]] != a.ByException[names[j]] {
			return a.ByException[names[i]] > a.ByException[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// AnalyzeDrainedMessages reads the messages_*.jsonl files a drain run
// produced and aggregates error patterns.
func AnalyzeDrainedMessages(folder string) (*Analysis, error) {
	files, err := filepath.Glob(filepath.Join(folder, "messages_*.jsonl"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.NewNotFoundError("no drained message files in folder").
			WithDetail("folder", folder)
	}
	sort.Strings(files)

	analysis := &Analysis{
		ByException:  make(map[string]int),
		ByBodyPrefix: make(map[string]int),
		BySender:     make(map[string]int),
	}

	for _, path := range files {
		if err := analyzeFile(path, analysis); err != nil {
			return nil, err
		}
		analysis.Files++
	}
	return analysis, nil
}

func analyzeFile(path string, analysis *Analysis) error {
	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewValidationError("message file not readable").
			WithCause(err).
			WithDetail("path", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return apperrors.NewValidationError("malformed message line").
				WithCause(err).
				WithDetail("path", path)
		}

		analysis.TotalMessages++

		prefix := msg.Body
		if len(prefix) > bodyPrefixLength {
			prefix = prefix[:bodyPrefixLength]
		}
		analysis.ByBodyPrefix[prefix]++

		if sender, ok := msg.Attributes["SenderId"]; ok {
			analysis.BySender[sender]++
		}

		for _, name := range exceptionPattern.FindAllString(msg.Body, -1) {
			analysis.ByException[name]++
		}
	}
	return scanner.Err()
}
