// Package format encodes and decodes the two command shapes that make up
// a kvs log: Set and Remove. Each command is one JSON object on one line,
// terminated by a newline. The wire format is fixed — callers outside this
// module (a future reader, a recovery tool) must be able to parse it without
// knowing anything about the engine that wrote it.
package format

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// SetCommand asserts the current value of Key is Value.
type SetCommand struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RemoveCommand asserts Key has no value.
type RemoveCommand struct {
	Key string `json:"key"`
}

// Record is the external-tag envelope around exactly one of Set or Remove.
// Decode guarantees that exactly one of the two fields is non-nil.
type Record struct {
	Set    *SetCommand    `json:"Set,omitempty"`
	Remove *RemoveCommand `json:"Remove,omitempty"`
}

// IsSet reports whether the record carries a Set command.
func (r *Record) IsSet() bool { return r != nil && r.Set != nil }

// IsRemove reports whether the record carries a Remove command.
func (r *Record) IsRemove() bool { return r != nil && r.Remove != nil }

// EncodeSet serializes a Set command as one newline-terminated JSON line.
func EncodeSet(key, value string) ([]byte, error) {
	return marshalLine(&Record{Set: &SetCommand{Key: key, Value: value}})
}

// EncodeRemove serializes a Remove command as one newline-terminated JSON line.
func EncodeRemove(key string) ([]byte, error) {
	return marshalLine(&Record{Remove: &RemoveCommand{Key: key}})
}

func marshalLine(r *Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("format: encode record: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses exactly one record from line, which may include or omit the
// trailing newline. It rejects lines that decode to neither or both of
// Set/Remove, since such a line can never have been produced by Encode*.
func Decode(line []byte) (*Record, error) {
	trimmed := bytes.TrimRight(line, "\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("format: empty record")
	}

	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("format: decode record: %w", err)
	}

	switch {
	case rec.Set != nil && rec.Remove != nil:
		return nil, fmt.Errorf("format: record carries both Set and Remove")
	case rec.Set == nil && rec.Remove == nil:
		return nil, fmt.Errorf("format: record carries neither Set nor Remove")
	}

	return &rec, nil
}
