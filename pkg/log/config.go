package log

import (
	"fmt"
	stdlog "log"
	"strings"
)

// Config declares how to build a Logger.
type Config struct {
	// Level is one of debug|info|warn|error.
	Level string `json:"level"`
	// Format is text or json.
	Format string `json:"format"`
	// Output is stderr (default), null, or a file path.
	Output string `json:"output"`
	// Redact lists field keys whose values are replaced with [REDACTED].
	Redact []string `json:"redact,omitempty"`
	// ShowCaller adds caller information to text output.
	ShowCaller bool `json:"showCaller"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{ShowCaller: cfg.ShowCaller}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	var output Output
	switch cfg.Output {
	case "", "stderr", "console":
		output = NewConsoleOutput()
	case "null", "none":
		output = NullOutput{}
	default:
		fo, err := NewFileOutput(cfg.Output)
		if err != nil {
			return nil, err
		}
		output = fo
	}
	l := NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(output)).(*BaseLogger)
	l.handler = l.handler.withRedactions(cfg.Redact)
	return l, nil
}

// RedirectStdLog routes the standard library logger through l at info level.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{l: l.WithComponent("stdlog")})
}

type stdWriter struct{ l Logger }

func (w stdWriter) Write(p []byte) (int, error) {
	w.l.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
