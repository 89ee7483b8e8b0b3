package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ConsoleSink renders events through a structured slog text handler.
type ConsoleSink struct {
	logger *slog.Logger
}

// NewConsoleSink builds a sink writing to w via a text slog handler.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: slog.New(slog.NewTextHandler(w, nil))}
}

func (s *ConsoleSink) Info(component, message string, fields map[string]any) {
	s.logger.Info(message, "component", component, "fields", fmtFields(fields))
}

func (s *ConsoleSink) Warning(component, message string, fields map[string]any) {
	s.logger.Warn(message, "component", component, "fields", fmtFields(fields))
}

func (s *ConsoleSink) Error(component, message string, fields map[string]any) {
	s.logger.Error(message, "component", component, "fields", fmtFields(fields))
}

// jsonLine is one newline-delimited JSON record written by JSONSink.
type jsonLine struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// JSONSink appends newline-delimited JSON event records to a file.
type JSONSink struct {
	mu sync.Mutex
	f  *os.File
	enc *json.Encoder
}

// NewJSONSink opens (creating/truncating) path for newline-delimited JSON
// event logging.
func NewJSONSink(path string) (*JSONSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open json sink %s: %w", path, err)
	}
	return &JSONSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *JSONSink) write(level, component, message string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(jsonLine{Time: time.Now(), Level: level, Component: component, Message: message, Fields: fields})
}

func (s *JSONSink) Info(component, message string, fields map[string]any) {
	s.write("info", component, message, fields)
}

func (s *JSONSink) Warning(component, message string, fields map[string]any) {
	s.write("warning", component, message, fields)
}

func (s *JSONSink) Error(component, message string, fields map[string]any) {
	s.write("error", component, message, fields)
}

// Close flushes and closes the underlying file.
func (s *JSONSink) Close() error {
	return s.f.Close()
}

// MultiSink fans calls out to every attached sink; used when the CLI
// wires more than one sink without needing the full Hub.
type MultiSink struct {
	Sinks []Sink
}

func (m MultiSink) Info(component, message string, fields map[string]any) {
	for _, s := range m.Sinks {
		s.Info(component, message, fields)
	}
}

func (m MultiSink) Warning(component, message string, fields map[string]any) {
	for _, s := range m.Sinks {
		s.Warning(component, message, fields)
	}
}

func (m MultiSink) Error(component, message string, fields map[string]any) {
	for _, s := range m.Sinks {
		s.Error(component, message, fields)
	}
}
