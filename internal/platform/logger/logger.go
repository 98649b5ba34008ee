package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/estate-backend/internal/platform/envutil"
)

// Logger wraps a zap sugared logger and scrubs estate personal data from every
// key-value pair before it is written.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         scrubber
}

// Options configures a Logger. OptionsFromEnv reads them from LOG_* variables.
type Options struct {
	Mode      string
	Level     string
	Redaction bool
	HashSalt  string
}

func OptionsFromEnv(mode string) Options {
	return Options{
		Mode:      mode,
		Level:     envutil.String("LOG_LEVEL", "debug"),
		Redaction: envutil.Bool("LOG_REDACTION_ENABLED", true),
		HashSalt:  strings.TrimSpace(envutil.String("LOG_HASH_SALT", "")),
	}
}

func New(mode string) (*Logger, error) {
	return NewWithOptions(OptionsFromEnv(mode))
}

func NewWithOptions(opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(opts.Mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{
		SugaredLogger: zapLogger.Sugar(),
		scrub:         scrubber{enabled: opts.Redaction, salt: opts.HashSalt},
	}, nil
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.scrub.pairs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.scrub.pairs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.scrub.pairs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.scrub.pairs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.scrub.pairs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.pairs(keysAndValues)...), scrub: l.scrub}
}

type fieldAction int

const (
	fieldKeep fieldAction = iota
	fieldRedact
	fieldHash
)

// Fields are matched by substring of the lower-cased key, first rule wins.
// Person identifiers are hashed so log lines for one estate still correlate;
// identity documents, tax PINs and contact details never reach the log.
var fieldRules = []struct {
	fragment string
	action   fieldAction
}{
	{"token", fieldRedact},
	{"authorization", fieldRedact},
	{"password", fieldRedact},
	{"secret", fieldRedact},
	{"dsn", fieldRedact},
	{"identity_ref", fieldRedact},
	{"national_id", fieldRedact},
	{"kra_pin", fieldRedact},
	{"phone", fieldRedact},
	{"contact", fieldRedact},
	{"email", fieldRedact},
	{"deceased_id", fieldHash},
	{"owner_identity", fieldHash},
	{"recipient_id", fieldHash},
	{"beneficiary_id", fieldHash},
	{"dependant_id", fieldHash},
}

func classify(key string) fieldAction {
	if key == "" {
		return fieldKeep
	}
	if key == "actor" || key == "contested_by" {
		return fieldHash
	}
	for _, r := range fieldRules {
		if strings.Contains(key, r.fragment) {
			return r.action
		}
	}
	return fieldKeep
}

type scrubber struct {
	enabled bool
	salt    string
}

func (s scrubber) pairs(kv []interface{}) []interface{} {
	if len(kv) == 0 || !s.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, s.value(normalizeKey(key), kv[i+1]))
	}
	return out
}

func (s scrubber) value(key string, val interface{}) interface{} {
	switch classify(key) {
	case fieldRedact:
		return "[REDACTED]"
	case fieldHash:
		if ids, ok := val.([]string); ok {
			hashed := make([]string, len(ids))
			for i, id := range ids {
				hashed[i] = s.hash(id)
			}
			return hashed
		}
		return s.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		if v == nil {
			return v
		}
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = s.value(normalizeKey(k), inner)
		}
		return out
	case []interface{}:
		if v == nil {
			return v
		}
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = s.value("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return "[REDACTED]"
		}
	}
	return val
}

func (s scrubber) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if s.salt != "" {
		_, _ = h.Write([]byte(s.salt))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func normalizeKey(k string) string {
	return strings.TrimSpace(strings.ToLower(k))
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
