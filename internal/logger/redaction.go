package logger

import (
	"io"
	"regexp"
)

const redactedPlaceholder = "[REDACTED]"

// secretPatterns covers the credentials this service handles: provider
// API keys, auth headers, and user passwords flowing through handlers.
var secretPatterns = []string{
	`sk-ant-[a-zA-Z0-9_-]{20,}`,           // Anthropic keys
	`sk-[a-zA-Z0-9_-]{20,}`,               // OpenAI keys
	`Bearer\s+[a-zA-Z0-9._-]+`,            // Authorization headers
	`api-key["\s:=]+[a-zA-Z0-9._-]{16,}`,  // Azure api-key headers
	`password["\s:=]+[^\s"]+`,             // credential payloads
	`pwd["\s:=]+[^\s"]+`,                  //
	`token["\s:=]+[a-zA-Z0-9._-]{20,}`,    // session/auth tokens
	`secret["\s:=]+[^\s"]+`,               // generic secrets
}

// Redactor blanks secrets out of log lines before they reach a sink.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles the default secret patterns.
func NewRedactor() *Redactor {
	r := &Redactor{patterns: make([]*regexp.Regexp, 0, len(secretPatterns))}
	for _, p := range secretPatterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// AddPattern registers an extra pattern to redact.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact replaces every secret match in s with a placeholder.
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{next: w, redactor: r}
}

type redactingWriter struct {
	next     io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	return w.next.Write([]byte(w.redactor.Redact(string(p))))
}
