package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// Common provider errors
var (
	// ErrEmptyResponse indicates the provider returned no output.
	ErrEmptyResponse = errors.New("the provider returned an empty response")

	// ErrNoChoices indicates the backing service returned no completion choices.
	ErrNoChoices = errors.New("no choices returned from provider")
)

// ProviderError is the final failure surfaced to the caller when a provider
// cannot produce output after retries. It names the provider role and the
// number of attempts consumed.
type ProviderError struct {
	Provider types.ProviderID
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for ProviderError.
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)
	return ok
}

// Classification is the result of classifying a provider failure.
type Classification int

const (
	// Fatal errors are surfaced immediately without consuming a retry.
	Fatal Classification = iota
	// Retryable errors are retried with backoff up to the attempt cap.
	Retryable
)

// retryablePatterns are the message substrings that mark an error as
// transient. Provider SDK errors embed HTTP-status-like tokens and keywords
// verbatim; the retry controller depends on these exact substrings.
var retryablePatterns = []string{
	"rate limit",
	"quota",
	"timeout",
	"503",
	"429",
	"500",
}

// Classify decides whether a provider failure is transient or fatal. The
// match is case-insensitive on the error message. The string coupling is
// contained here so it can be swapped for typed status codes if provider
// SDKs grow them.
func Classify(err error) Classification {
	if err == nil {
		return Fatal
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return Retryable
		}
	}

	return Fatal
}
