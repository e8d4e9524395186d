// Package redact provides helpers for stripping sensitive values from log
// output and error detail before it leaves the process boundary.
//
// The upstream completion API occasionally echoes request headers back in
// error bodies; those bodies are captured for diagnostics, so the API key
// must be scrubbed before the text reaches a log line or an HTTP response.
//
// Redaction is best-effort: it operates on string representations and relies
// on callers to pass the right set of sensitive terms. It is NOT a substitute
// for keeping secrets out of log call-sites in the first place.
package redact

import "strings"

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Truncate shortens s to at most max bytes, appending an ellipsis marker
// when anything was cut. Used to bound upstream error bodies surfaced to
// clients and logs.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…(truncated)"
}
