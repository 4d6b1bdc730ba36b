package cloud

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/pkg/jsonmessage"
)

// LogRecord is one line of an image action's log stream. A non-empty
// ErrorMessage marks that unit of work as failed.
type LogRecord = jsonmessage.JSONMessage

const maxLogLine = 1024 * 1024

// ParseLog reads r to the end, decoding each non-empty line as a LogRecord.
func ParseLog(r io.Reader) ([]LogRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)

	var records []LogRecord
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec LogRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("malformed log record on line %d: %w", n, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log stream: %w", err)
	}
	return records, nil
}

// CollectErrors concatenates the error fields of records in order.
func CollectErrors(records []LogRecord) string {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(rec.ErrorMessage)
	}
	return b.String()
}
