package logger

import (
	"bufio"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
)

// LogEntry is one JSON line written by the file core. The admin audit
// endpoint reads them back, e.g. to review placeholders that fell back.
type LogEntry struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type LogQuery struct {
	Level  string
	Module string
	Limit  int
	Offset int
}

// ReadLogs scans the log file newest first. Reads the whole file, which is
// fine while rotation keeps it under 10MB.
func ReadLogs(filePath string, q LogQuery) ([]LogEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if q.Level != "" && entry.Level != q.Level {
			continue
		}
		if q.Module != "" && entry.Module != q.Module {
			continue
		}
		if entry.Id == "" {
			entry.Id = fmt.Sprintf("%x", md5.Sum(line))
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if q.Limit <= 0 {
		q.Limit = 50
	}
	start := q.Offset
	if start >= len(entries) {
		return []LogEntry{}, nil
	}
	end := start + q.Limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], nil
}
