package logx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "debug"
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

// ParseLevel maps a level name to a Level; unknown names yield LevelWarn.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

const truncateLimit = 2 * 1024

var (
	mu      sync.RWMutex
	level   = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger  = newLogger(io.Discard)
	secrets = make([]string, 0)
	verbose bool
)

func newLogger(w io.Writer) *zap.Logger {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339Nano),
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// SetOutput sets the destination for logs.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	mu.Lock()
	logger = newLogger(w)
	mu.Unlock()
}

// SetMinLevel sets the minimum level to emit.
func SetMinLevel(l Level) { level.SetLevel(l.zap()) }

// SetVerbose toggles verbose output (no truncation of large fields/messages).
func SetVerbose(v bool) { mu.Lock(); verbose = v; mu.Unlock() }

// Verbose returns whether verbose output is enabled.
func Verbose() bool { mu.RLock(); defer mu.RUnlock(); return verbose }

// RegisterSecret adds a string to be redacted in outputs.
func RegisterSecret(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	mu.Lock()
	secrets = append(secrets, s)
	mu.Unlock()
}

// RegisterSecrets adds multiple secrets for redaction.
func RegisterSecrets(list []string) {
	for _, s := range list {
		RegisterSecret(s)
	}
}

// StdlogWriter wraps writes as structured JSON lines at a fixed level.
// It applies redaction and optional truncation when verbose is disabled.
func StdlogWriter(level Level, w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	return &stdlogWriter{level: level, log: newLogger(w)}
}

type stdlogWriter struct {
	level Level
	log   *zap.Logger
}

func (sw *stdlogWriter) Write(p []byte) (int, error) {
	written := 0
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		emit(sw.log, sw.level, string(line), nil)
		written += len(line) + 1
	}
	return written, nil
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debugw logs msg with alternating key/value fields.
func Debugw(msg string, kv ...any) { emit(current(), LevelDebug, msg, kv) }

// Infow logs msg with alternating key/value fields.
func Infow(msg string, kv ...any) { emit(current(), LevelInfo, msg, kv) }

// Warnw logs msg with alternating key/value fields.
func Warnw(msg string, kv ...any) { emit(current(), LevelWarn, msg, kv) }

// Errorw logs msg with alternating key/value fields.
func Errorw(msg string, kv ...any) { emit(current(), LevelError, msg, kv) }

// Sync flushes buffered entries.
func Sync() error { return current().Sync() }

func emit(l *zap.Logger, lvl Level, msg string, kv []any) {
	ce := l.Check(lvl.zap(), "")
	if ce == nil {
		return
	}
	v := Verbose()
	ce.Message = clean(msg, v)
	fields := toFields(kv, v)
	if len(fields) > 0 {
		fields = append([]zap.Field{zap.Namespace("fields")}, fields...)
	}
	ce.Write(fields...)
}

// toFields converts key/value pairs; a dangling key gets a nil value.
func toFields(kv []any, verbose bool) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		switch x := val.(type) {
		case string:
			fields = append(fields, zap.String(key, clean(x, verbose)))
		case error:
			fields = append(fields, zap.String(key, clean(x.Error(), verbose)))
		case time.Duration:
			fields = append(fields, zap.Duration(key, x))
		default:
			fields = append(fields, zap.Any(key, x))
		}
	}
	return fields
}

func clean(s string, verbose bool) string {
	s = redact(s)
	if !verbose {
		s = truncate(s, truncateLimit)
	}
	return s
}

func redact(s string) string {
	mu.RLock()
	defer mu.RUnlock()
	if len(secrets) == 0 {
		return s
	}
	out := s
	for _, sec := range secrets {
		if sec == "" {
			continue
		}
		out = strings.ReplaceAll(out, sec, "[REDACTED]")
	}
	return out
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	// keep last 10 bytes to aid context; cuts land on rune starts
	suffix := "… [truncated]"
	if limit > len(suffix)+10 {
		head := s[:runeStart(s, limit-len(suffix)-10)]
		t := len(s) - 10
		for t < len(s) && !utf8.RuneStart(s[t]) {
			t++
		}
		tail := s[t:]
		return head + suffix + tail
	}
	return s[:runeStart(s, limit)]
}

// runeStart backs i off to the first byte of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
