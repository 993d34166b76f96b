// Package provider defines the content provider capability and the wrapper
// clients that make it resilient against flaky network services.
//
// A base client (OpenAI or any OpenAI-compatible endpoint) is decorated with
// a rate limiter, a retry controller, an optional circuit breaker, and an
// optional usage tracker. All wrappers implement the same Client interface,
// so they compose in any order:
//
//	base, _ := provider.NewOpenAIClient(apiKey, types.ProviderHighFidelity, cfg)
//	client := provider.NewRetryClient(
//		provider.NewRateLimitedClient(base, 20), // 20 requests/minute
//		nil,                                     // default retry config
//	)
//
// Failure classification is deliberately string-based: provider SDK errors
// embed HTTP-status-like tokens ("429", "503") and keywords ("rate limit",
// "quota", "timeout") in their messages, and Classify is the single place
// that knows about them.
package provider
