package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// MessageKind identifies a message emitted by a gallery-dl extractor.
// Values match gallery-dl's numbering so --dump-json output decodes directly.
type MessageKind int

const (
	MessageVersion   MessageKind = 1
	MessageDirectory MessageKind = 2
	MessageURL       MessageKind = 3
	MessageQueue     MessageKind = 6
	MessageMetadata  MessageKind = 8
)

// String returns the gallery-dl name of the kind
func (k MessageKind) String() string {
	switch k {
	case MessageVersion:
		return "Version"
	case MessageDirectory:
		return "Directory"
	case MessageURL:
		return "Url"
	case MessageQueue:
		return "Queue"
	case MessageMetadata:
		return "Metadata"
	default:
		return fmt.Sprintf("Message(%d)", int(k))
	}
}

// hasURL reports whether messages of this kind carry a URL element
func (k MessageKind) hasURL() bool {
	return k == MessageURL || k == MessageQueue
}

// Message is one (kind, url, metadata) entry of an extractor's message stream
type Message struct {
	Kind     MessageKind
	URL      string
	Metadata map[string]interface{}
}

// UnmarshalJSON decodes the array form gallery-dl prints:
// [2, {kwdict}], [3, "url", {kwdict}], [1, version].
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("message is not an array: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty message")
	}

	var kind int
	if err := json.Unmarshal(raw[0], &kind); err != nil {
		return fmt.Errorf("invalid message kind: %w", err)
	}
	m.Kind = MessageKind(kind)
	m.URL = ""
	m.Metadata = nil

	rest := raw[1:]
	if m.Kind.hasURL() && len(rest) > 0 {
		if err := json.Unmarshal(rest[0], &m.URL); err != nil {
			return fmt.Errorf("invalid %s message url: %w", m.Kind, err)
		}
		rest = rest[1:]
	}
	if len(rest) > 0 {
		var meta map[string]interface{}
		// Numbers stay json.Number so 64-bit ids survive the round trip
		dec := json.NewDecoder(bytes.NewReader(rest[0]))
		dec.UseNumber()
		// Version messages carry a bare number instead of a kwdict
		if err := dec.Decode(&meta); err == nil {
			m.Metadata = meta
		}
	}
	return nil
}

// MarshalJSON encodes the message back into gallery-dl's array form
func (m Message) MarshalJSON() ([]byte, error) {
	parts := []interface{}{int(m.Kind)}
	if m.Kind.hasURL() {
		parts = append(parts, m.URL)
	}
	parts = append(parts, SanitizeMetadata(m.Metadata))
	return json.Marshal(parts)
}

// PartitionMessages splits a message stream into URL and Directory messages,
// preserving emission order within each group. Other kinds are dropped.
func PartitionMessages(messages []Message) (urls []Message, dirs []Message) {
	for _, msg := range messages {
		switch msg.Kind {
		case MessageURL:
			urls = append(urls, msg)
		case MessageDirectory:
			dirs = append(dirs, msg)
		}
	}
	return urls, dirs
}

// SanitizeMetadata returns a copy of metadata where values encoding/json
// cannot represent faithfully are replaced by their string form.
func SanitizeMetadata(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number, json.RawMessage:
		return val
	case time.Time:
		return val.String()
	case time.Duration:
		return val.String()
	case map[string]interface{}:
		return SanitizeMetadata(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case []string:
		return val
	case fmt.Stringer:
		return val.String()
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Sprint(v)
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
