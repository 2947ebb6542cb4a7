package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"
)

var logLevel = new(slog.LevelVar) // Info by default

// NewLogger builds the process logger the way the node manager does: a
// terse handler when stdout is a tty, structured JSON (with severity/message
// key renaming for log aggregators) otherwise. DEBUG=1 lowers the level.
func NewLogger(out *os.File) *slog.Logger {
	var logger *slog.Logger
	if term.IsTerminal(int(out.Fd())) {
		logger = slog.New(NewMinimalHandler(out, MinimalHandlerOptions{SlogOpts: slog.HandlerOptions{Level: logLevel}}))
	} else {
		opts := &slog.HandlerOptions{
			Level: logLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.MessageKey {
					a.Key = "message"
				} else if a.Key == slog.LevelKey && len(groups) == 0 {
					a.Key = "severity"
				}
				return a
			},
		}
		logger = slog.New(slog.NewJSONHandler(out, opts))
	}
	if os.Getenv("DEBUG") == "1" {
		logLevel.Set(slog.LevelDebug)
	}
	return logger
}

func Errorf(logger *slog.Logger, format string, args ...any) { helperf(logger, slog.LevelError, format, args...) }
func Warnf(logger *slog.Logger, format string, args ...any)  { helperf(logger, slog.LevelWarn, format, args...) }
func Infof(logger *slog.Logger, format string, args ...any)  { helperf(logger, slog.LevelInfo, format, args...) }
func Debugf(logger *slog.Logger, format string, args ...any) { helperf(logger, slog.LevelDebug, format, args...) }

func helperf(logger *slog.Logger, level slog.Level, format string, args ...any) {
	if !logger.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	_ = logger.Handler().Handle(context.Background(), r)
}

// redactSecretAttr stringifies a log attribute, replacing the value outright
// when its key contains "mnemonic" or names one of the mnemonic environment
// variables tracked by SecretEnvKeys, so a stray "mnemonic", err pair never
// writes key material through MinimalHandler.
func redactSecretAttr(a slog.Attr) any {
	if strings.Contains(strings.ToLower(a.Key), "mnemonic") {
		return "[redacted]"
	}
	for _, k := range SecretEnvKeys() {
		if strings.EqualFold(a.Key, k) {
			return "[redacted]"
		}
	}
	return fmt.Sprintf("%v", a.Value.Any())
}

type MinimalHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// MinimalHandler renders a bare message plus a compact JSON blob of any
// attributes, for interactive CLI use where full structured output is noise.
type MinimalHandler struct {
	slog.Handler
	l *log.Logger
}

func NewMinimalHandler(out io.Writer, opts MinimalHandlerOptions) *MinimalHandler {
	return &MinimalHandler{
		Handler: slog.NewJSONHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

func (h *MinimalHandler) Handle(ctx context.Context, r slog.Record) error {
	var extra string
	if r.NumAttrs() > 0 {
		fields := make(map[string]any, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			fields[a.Key] = redactSecretAttr(a)
			return true
		})
		b, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		extra = string(b)
	}
	h.l.Println(r.Message, extra)
	return nil
}
