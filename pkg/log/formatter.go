package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// TextFormatter renders entries as a single human-readable line:
//
//	2025-01-02T15:04:05.000Z INFO  commit saved component=writer items=3
type TextFormatter struct {
	// ShowCaller appends the caller file:line when available.
	ShowCaller bool
}

func (f *TextFormatter) Format(e *Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Timestamp.UTC().Format(timeLayout))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s ", e.Level.String())
	b.WriteString(e.Message)
	for _, k := range sortedKeys(e.Fields) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		writeTextValue(&b, e.Fields[k])
	}
	if f.ShowCaller && e.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(e.Caller)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func writeTextValue(b *bytes.Buffer, v interface{}) {
	s := fmt.Sprint(v)
	if s == "" || bytes.ContainsAny([]byte(s), " \t\"=") {
		fmt.Fprintf(b, "%q", s)
		return
	}
	b.WriteString(s)
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct {
	// TimestampFormat overrides the default millisecond RFC3339 layout.
	TimestampFormat string
}

func (f *JSONFormatter) Format(e *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = timeLayout
	}
	out := make(map[string]interface{}, len(e.Fields)+4)
	for k, v := range e.Fields {
		out[k] = jsonValue(v)
	}
	out["ts"] = e.Timestamp.UTC().Format(layout)
	out["level"] = e.Level.String()
	out["msg"] = e.Message
	if e.Caller != "" {
		out["caller"] = e.Caller
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func jsonValue(v interface{}) interface{} {
	switch t := v.(type) {
	case error:
		return t.Error()
	case time.Duration:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

func sortedKeys(m Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
