// Package markers renders the plain-text delimiters that wrap every file
// sent to the model.
package markers

import "strings"

// TruncationMarker is appended to bodies cut to fit the token budget.
const TruncationMarker = "... [CONTENT TRUNCATED TO FIT TOKEN LIMIT] ..."

// File wraps body in the FILE marker pair.
func File(rel, body string) string {
	return wrap("FILE", rel, body)
}

// Essential wraps body in the ESSENTIAL FILE marker pair.
func Essential(rel, body string) string {
	return wrap("ESSENTIAL FILE", rel, body)
}

// Annotated prefixes body with an informational summary header.
func Annotated(summary, body string) string {
	return "--- SUMMARY ---\n" + summary + "\n--- END SUMMARY ---\n" + body
}

func wrap(kind, rel, body string) string {
	var b strings.Builder
	b.Grow(len(body) + 2*len(rel) + 48)
	b.WriteString("--- START OF ")
	b.WriteString(kind)
	b.WriteByte(' ')
	b.WriteString(rel)
	b.WriteString(" ---\n")
	b.WriteString(body)
	b.WriteString("\n--- END OF ")
	b.WriteString(kind)
	b.WriteByte(' ')
	b.WriteString(rel)
	b.WriteString(" ---")
	return b.String()
}
