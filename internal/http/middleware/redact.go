package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\+?\d[\d .\-()]{7,}\d`)
)

// Redactor scrubs client contact data (emails, phone numbers) from logged
// strings and masks credential headers entirely. Case and lawyer ids are
// kept: they are what operators search logs by.
type Redactor struct {
	masked map[string]struct{}
}

// NewRedactor masks Authorization, Cookie and Set-Cookie plus any extra
// header names given (case-insensitive).
func NewRedactor(maskHeaders ...string) *Redactor {
	r := &Redactor{masked: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range maskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

// String replaces emails and phone numbers in s.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Headers flattens h into a loggable map with masked and scrubbed values.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}
