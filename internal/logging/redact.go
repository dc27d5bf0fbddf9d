package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Patterns that match sensitive values in log output. Each pattern uses a
// capture group to preserve the prefix while replacing only the secret
// value with [REDACTED]. Grounded on this bridge's own two secret shapes:
// a PEM-encoded identity private key that ends up in a log line (an
// identity.LoadFromPEM failure echoing its input, say) and a
// credential-shaped key=value pair in a canister call argument.
var defaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)(-----BEGIN [A-Z ]*PRIVATE KEY-----\s*)[A-Za-z0-9+/=\s]+(-----END [A-Z ]*PRIVATE KEY-----)`),
	regexp.MustCompile(`(?i)((?:password|passwd|secret|api[_-]?key|token|credentials?|private[_-]?key)\s*[=:]\s*)\S+`),
}

// RedactingHandler is a slog.Handler that redacts sensitive values from all
// log records before forwarding them to an inner handler. It scans string
// values in the log message and all attributes for patterns that look like
// an identity's PEM key material or a credential-shaped canister call
// argument.
type RedactingHandler struct {
	inner    slog.Handler
	patterns []*regexp.Regexp
}

// NewRedactingHandler wraps an inner handler with secret redaction.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{
		inner:    inner,
		patterns: defaultRedactPatterns,
	}
}

// Enabled delegates to the inner handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle redacts sensitive values in the record before forwarding.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = h.redactString(r.Message)

	var redacted []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		redacted = append(redacted, h.redactAttr(a))
		return true
	})

	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	newRecord.AddAttrs(redacted...)

	return h.inner.Handle(ctx, newRecord)
}

// WithAttrs returns a new handler with redacted persistent attributes.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{
		inner:    h.inner.WithAttrs(redacted),
		patterns: h.patterns,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		inner:    h.inner.WithGroup(name),
		patterns: h.patterns,
	}
}

// redactAttr redacts sensitive values in an attribute.
func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactString(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, attrsToAny(redacted)...)
	case slog.KindAny:
		return h.redactAnyAttr(a)
	default:
		return a
	}
}

// redactAnyAttr handles KindAny values: json.RawMessage (a tool call's
// argument blob), []byte (raw PEM bytes), and error/fmt.Stringer values.
func (h *RedactingHandler) redactAnyAttr(a slog.Attr) slog.Attr {
	v := a.Value.Any()
	switch val := v.(type) {
	case json.RawMessage:
		return slog.String(a.Key, string(RedactCallArgs(val)))
	case []byte:
		return slog.String(a.Key, h.redactString(string(val)))
	case error:
		return slog.String(a.Key, h.redactString(val.Error()))
	case fmt.Stringer:
		return slog.String(a.Key, h.redactString(val.String()))
	default:
		return a
	}
}

// redactString applies all redaction patterns to a string.
func (h *RedactingHandler) redactString(s string) string {
	for _, p := range h.patterns {
		s = p.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}

// RedactString applies the default redaction patterns to a string. Use this
// for redacting secrets in non-slog output, e.g. an error message echoed
// back to a caller.
func RedactString(s string) string {
	for _, p := range defaultRedactPatterns {
		s = p.ReplaceAllString(s, "${1}[REDACTED]")
	}
	return s
}

// attrsToAny converts []slog.Attr to []any for slog.Group().
func attrsToAny(attrs []slog.Attr) []any {
	result := make([]any, len(attrs))
	for i, a := range attrs {
		result[i] = a
	}
	return result
}

// RedactCallArgs returns a copy of a tool call's JSON arguments with
// credential-shaped keys replaced by [REDACTED], for safe inclusion in a
// trace log line. A canister tool is free to declare a parameter named
// "api_key" or "token" — this bridge doesn't control the canister's
// schema — so the dispatch path can't assume tool arguments are safe to
// log verbatim. Non-object or malformed input is returned unchanged: it
// isn't this function's job to validate call arguments, only to redact
// the ones it can parse.
func RedactCallArgs(args json.RawMessage) json.RawMessage {
	if len(args) == 0 {
		return args
	}

	var decoded map[string]any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return args
	}

	for k, v := range decoded {
		if !isSensitiveKey(k) {
			continue
		}
		if _, ok := v.(string); ok {
			decoded[k] = "[REDACTED]"
		}
	}

	redacted, err := json.Marshal(decoded)
	if err != nil {
		return args
	}
	return redacted
}

var sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|key|credential|auth|api[_-]?key)`)

// isSensitiveKey returns true if the key name suggests it holds a secret.
func isSensitiveKey(key string) bool {
	return sensitiveKeyPattern.MatchString(strings.ToLower(key))
}
