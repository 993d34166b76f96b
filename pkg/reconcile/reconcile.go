// Package reconcile recovers typed values from unreliable free-text model
// output. LLM responses are not guaranteed to be syntactically valid JSON,
// especially for large array outputs that hit generation length limits;
// recovering as much of a truncated payload as possible beats discarding the
// whole response, and an irrecoverable response must never crash the
// pipeline. It degrades to a caller-supplied known-good structure instead.
package reconcile

import (
	"encoding/json"
	"log/slog"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// diagnosticLimit bounds how much raw text is retained in logs on failure.
const diagnosticLimit = 2000

// Validator checks the shape of a parsed value: required keys, types, and
// any domain constraints. A nil return accepts the value.
type Validator[T any] func(value T) error

// Result is the outcome of reconciliation: either a validated value of the
// caller-declared shape, or the deterministic fallback of the same shape.
// FromFallback records provenance so downstream consumers can warn a human
// reviewer without breaking the pipeline.
type Result[T any] struct {
	Value        T
	FromFallback bool
}

// Reconcile turns a provider's raw text into a validated structured value.
// The extraction cascade runs in order, each step attempted only if the
// prior one did not yield a usable candidate:
//
//  1. fenced extraction (```json blocks)
//  2. boundary trim to the outermost brackets
//  3. bracket scan of the original text for array payloads
//  4. truncation detection and repair (cut at the last complete object,
//     re-close, then a deep repair pass)
//  5. strict parse
//  6. shape validation
//
// Reconcile never returns an error and never panics: any failure resolves to
// the fallback value tagged FromFallback, with the first 2000 characters of
// the raw text logged for diagnosis.
func Reconcile[T any](rawText string, validate Validator[T], fallback T) Result[T] {
	candidate := extractCandidate(rawText)

	// Nothing bracket-shaped anywhere: raw text must never reach the caller.
	if !startsWithBracket(candidate) {
		return fallbackResult(rawText, fallback, "no JSON payload found")
	}

	if looksTruncated(candidate) {
		// No complete object to cut at leaves the candidate as-is; the deep
		// repair pass below can still close unterminated strings.
		if repaired, ok := repairTruncation(candidate); ok {
			candidate = repaired
		}
	}

	value, err := parseStrict[T](candidate)
	if err != nil {
		// Deep repair: handles unquoted keys, stray trailing commas and
		// other damage the truncation cut does not cover.
		if fixed, repairErr := jsonrepair.JSONRepair(candidate); repairErr == nil {
			value, err = parseStrict[T](fixed)
		}
		if err != nil {
			return fallbackResult(rawText, fallback, "parse failed: "+err.Error())
		}
	}

	if validate != nil {
		if err := validate(value); err != nil {
			return fallbackResult(rawText, fallback, "shape validation rejected: "+err.Error())
		}
	}

	return Result[T]{Value: value}
}

// extractCandidate runs the non-destructive extraction steps: fenced block,
// boundary trim, bracket scan.
func extractCandidate(rawText string) string {
	candidate := extractFenced(rawText)
	candidate = trimBoundary(candidate)

	// Array payloads sometimes sit past unrelated braces in the prose; fall
	// back to scanning the original text between the first '[' and last ']'.
	if !startsWithBracket(candidate) {
		if scanned, ok := bracketScan(rawText); ok {
			candidate = scanned
		}
	}

	return candidate
}

// extractFenced returns the interior of a ```json fence if present,
// otherwise the full text.
func extractFenced(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		// Unterminated fence: the payload is everything after the marker.
		return strings.TrimSpace(rest)
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	return text
}

// trimBoundary strips any leading characters before the first '{'/'[' and
// any trailing characters after the last '}'/']'.
func trimBoundary(text string) string {
	start := len(text)
	if i := strings.IndexAny(text, "{["); i != -1 {
		start = i
	}

	end := -1
	if i := strings.LastIndexAny(text, "}]"); i != -1 {
		end = i
	}

	if start >= len(text) {
		return strings.TrimSpace(text)
	}
	if end < start {
		// Opening bracket with no closer at all: keep the tail so truncation
		// repair can have a go at it.
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text[start : end+1])
}

// bracketScan slices the text between the first '[' and last ']'.
func bracketScan(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func startsWithBracket(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

// looksTruncated reports whether the candidate ends with a dangling comma,
// an unterminated quote, or the wrong closing bracket for its opener.
func looksTruncated(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if strings.HasSuffix(trimmed, ",") {
		return true
	}
	if hasUnterminatedQuote(trimmed) {
		return true
	}

	expected := byte('}')
	if trimmed[0] == '[' {
		expected = ']'
	}
	return trimmed[len(trimmed)-1] != expected
}

// hasUnterminatedQuote checks for an odd number of unescaped double quotes.
func hasUnterminatedQuote(text string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch text[i] {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		}
	}
	return inString
}

// repairTruncation locates the last complete '}' and cuts the text there,
// then appends the missing closers. Returns false if no complete object
// exists at all.
func repairTruncation(text string) (string, bool) {
	last := strings.LastIndex(text, "}")
	if last == -1 {
		return "", false
	}
	cut := text[:last+1]
	return cut + missingClosers(cut), true
}

// missingClosers returns the closing brackets needed to balance the text,
// innermost first. String contents are skipped so braces inside values don't
// count.
func missingClosers(text string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// parseStrict attempts a strict structural parse of the candidate text.
func parseStrict[T any](text string) (T, error) {
	var value T
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func fallbackResult[T any](rawText string, fallback T, reason string) Result[T] {
	diagnostic := rawText
	if len(diagnostic) > diagnosticLimit {
		diagnostic = diagnostic[:diagnosticLimit]
	}
	slog.Warn("reconciliation degraded to fallback",
		"reason", reason,
		"raw_text", diagnostic,
	)
	return Result[T]{Value: fallback, FromFallback: true}
}
