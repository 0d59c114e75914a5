package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StreamRecord is one decoded payload unit from the stream body.
type StreamRecord struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Source    string `json:"source,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DecodeRecord attempts to decode a single body chunk as a record.
// Anything that is not a JSON object is a keepalive, not an error.
func DecodeRecord(chunk []byte) (StreamRecord, bool) {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return StreamRecord{}, false
	}

	var rec StreamRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return StreamRecord{}, false
	}
	return rec, true
}

// displayReplacer strips characters that break single-line display.
var displayReplacer = strings.NewReplacer("\n", " ", "\r", " ", "@", " ", "#", " ")

// SanitizeDisplay replaces newlines and the literal @ and # characters
// with spaces. Idempotent.
func SanitizeDisplay(text string) string {
	return displayReplacer.Replace(text)
}

// DisplayText returns the record text sanitized for display.
func (r StreamRecord) DisplayText() string {
	return SanitizeDisplay(r.Text)
}
