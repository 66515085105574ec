package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/voxnotes/pkg/core"
)

// TimestampLayout is the persisted creation time: a local date-time without
// zone. Fractional seconds are written only when non-zero.
const TimestampLayout = "2006-01-02T15:04:05"

const timestampFormat = TimestampLayout + ".999999999"

// Record is the persisted shape of one note.
//
// Two generations of records exist. Current records always carry FilePath for
// recordings and Content holds the text. Legacy records have no FilePath and a
// recording stores its asset path in Content.
type Record struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Category  string  `json:"category"`
	Timestamp string  `json:"timestamp"`
	Content   *string `json:"content,omitempty"`
	// Text is accepted as an alias of Content when reading.
	Text     *string `json:"text,omitempty"`
	FilePath *string `json:"filePath,omitempty"`
	Done     bool    `json:"done"`
}

// FormatTimestamp renders t in the persisted layout, in local time.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(timestampFormat)
}

// ParseTimestamp reads a persisted timestamp as local time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}

// EncodeRecord maps a note to the current record schema.
func EncodeRecord(n core.Note) Record {
	content := n.Text
	r := Record{
		ID:        n.ID,
		Type:      string(n.Kind),
		Category:  n.Category,
		Timestamp: FormatTimestamp(n.CreatedAt),
		Content:   &content,
		Done:      n.Done,
	}
	if n.IsAudio() {
		path := n.AudioPath
		r.FilePath = &path
	}
	return r
}

// DecodeRecord maps a record of either schema to a note.
// Any violation wraps core.ErrMalformedStore.
func DecodeRecord(r Record) (core.Note, error) {
	malformed := func(format string, args ...any) (core.Note, error) {
		return core.Note{}, fmt.Errorf("%w: record %q: %s", core.ErrMalformedStore, r.ID, fmt.Sprintf(format, args...))
	}

	if r.ID == "" {
		return malformed("missing id")
	}
	kind, err := core.ParseKind(r.Type)
	if err != nil {
		return malformed("%v", err)
	}
	if r.Category == "" {
		return malformed("missing category")
	}
	if r.Timestamp == "" {
		return malformed("missing timestamp")
	}
	created, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return malformed("bad timestamp %q", r.Timestamp)
	}
	content := r.Content
	if content == nil {
		content = r.Text
	}
	if content == nil {
		return malformed("missing content")
	}

	n := core.Note{
		ID:        r.ID,
		Kind:      kind,
		Category:  r.Category,
		CreatedAt: created,
		Done:      r.Done,
	}
	switch {
	case kind == core.KindText:
		// A stray filePath on a typed note is ignored.
		n.Text = *content
	case r.FilePath != nil:
		n.Text = *content
		n.AudioPath = *r.FilePath
	default:
		// Legacy recording: content is the asset path, no transcription yet.
		n.AudioPath = *content
	}

	if err := n.Validate(); err != nil {
		return malformed("%v", err)
	}
	return n, nil
}

// MarshalNotes encodes notes as one JSON array in the given order.
func MarshalNotes(notes []core.Note) ([]byte, error) {
	records := make([]Record, 0, len(notes))
	for _, n := range notes {
		records = append(records, EncodeRecord(n))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalNotes decodes a document produced by MarshalNotes or by older
// versions. The whole document is rejected if any record is malformed.
func UnmarshalNotes(data []byte) ([]core.Note, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []Record
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedStore, err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("%w: trailing data after note array", core.ErrMalformedStore)
	}
	return DecodeRecords(records)
}

// DecodeRecords decodes records and rejects duplicate ids.
func DecodeRecords(records []Record) ([]core.Note, error) {
	notes := make([]core.Note, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		n, err := DecodeRecord(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s: %s", core.ErrMalformedStore, core.ErrDuplicateID, n.ID)
		}
		seen[n.ID] = struct{}{}
		notes = append(notes, n)
	}
	return notes, nil
}
