package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// mockClient is a scripted provider client for testing the wrappers.
type mockClient struct {
	id               types.ProviderID
	callCount        int
	failUntilCall    int
	errorToReturn    error
	responseToReturn *types.Response
}

func (m *mockClient) GenerateContent(ctx context.Context, prompt string) (*types.Response, error) {
	m.callCount++
	if m.callCount <= m.failUntilCall {
		return nil, m.errorToReturn
	}
	if m.responseToReturn != nil {
		return m.responseToReturn, nil
	}
	return &types.Response{Content: "success"}, nil
}

func (m *mockClient) ID() types.ProviderID {
	if m.id == "" {
		return types.ProviderHighFidelity
	}
	return m.id
}

func (m *mockClient) Close() error {
	return nil
}

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      10 * time.Millisecond,
		MaxDelay:          100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryClient_SuccessOnFirstAttempt(t *testing.T) {
	mock := &mockClient{failUntilCall: 0}
	retryClient := NewRetryClient(mock, fastRetryConfig())

	resp, err := retryClient.GenerateContent(context.Background(), "test")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if resp.Content != "success" {
		t.Errorf("expected content 'success', got '%s'", resp.Content)
	}

	if mock.callCount != 1 {
		t.Errorf("expected 1 call, got %d", mock.callCount)
	}
}

func TestRetryClient_SuccessAfterRetries(t *testing.T) {
	mock := &mockClient{
		failUntilCall: 2,
		errorToReturn: errors.New("500 internal server error"),
	}
	retryClient := NewRetryClient(mock, fastRetryConfig())

	start := time.Now()
	resp, err := retryClient.GenerateContent(context.Background(), "test")
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}

	if resp.Content != "success" {
		t.Errorf("expected content 'success', got '%s'", resp.Content)
	}

	if mock.callCount != 3 {
		t.Errorf("expected 3 calls (1 initial + 2 retries), got %d", mock.callCount)
	}

	// First retry: 10ms, second retry: 20ms = total 30ms minimum
	if duration < 30*time.Millisecond {
		t.Errorf("expected at least 30ms duration for backoff, got %v", duration)
	}
}

func TestRetryClient_FailAfterMaxRetries(t *testing.T) {
	mock := &mockClient{
		failUntilCall: 10, // More than max retries
		errorToReturn: errors.New("503 service unavailable"),
	}
	retryClient := NewRetryClient(mock, fastRetryConfig())

	_, err := retryClient.GenerateContent(context.Background(), "test")
	if err == nil {
		t.Fatal("expected error after max retries, got nil")
	}

	if mock.callCount != 4 {
		t.Errorf("expected 4 calls (1 initial + 3 retries), got %d", mock.callCount)
	}

	if !errors.Is(err, mock.errorToReturn) {
		t.Errorf("expected error to wrap original error")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if provErr.Attempts != 4 {
		t.Errorf("expected 4 attempts recorded, got %d", provErr.Attempts)
	}
	if provErr.Provider != types.ProviderHighFidelity {
		t.Errorf("expected provider high_fidelity, got %s", provErr.Provider)
	}
}

func TestRetryClient_FatalErrorFailsImmediately(t *testing.T) {
	mock := &mockClient{
		failUntilCall: 10,
		errorToReturn: errors.New("invalid api key"),
	}
	retryClient := NewRetryClient(mock, fastRetryConfig())

	_, err := retryClient.GenerateContent(context.Background(), "test")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if mock.callCount != 1 {
		t.Errorf("expected 1 call (no retries for fatal error), got %d", mock.callCount)
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		t.Errorf("fatal error should surface unwrapped, got %v", provErr)
	}
}

func TestRetryClient_ContextCancellation(t *testing.T) {
	mock := &mockClient{
		failUntilCall: 10,
		errorToReturn: errors.New("500 internal server error"),
	}

	config := &RetryConfig{
		MaxRetries:        5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
	}
	retryClient := NewRetryClient(mock, config)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := retryClient.GenerateContent(ctx, "test")
	if err == nil {
		t.Fatal("expected error due to context cancellation, got nil")
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}

	// Should have attempted at least once, but not completed all retries
	if mock.callCount >= 6 {
		t.Errorf("expected fewer than 6 calls due to context cancellation, got %d", mock.callCount)
	}
}

func TestRetryClient_ExponentialBackoff(t *testing.T) {
	config := &RetryConfig{
		MaxRetries:        5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
	}
	retryClient := NewRetryClient(&mockClient{}, config)

	delays := []time.Duration{
		retryClient.calculateDelay(1),
		retryClient.calculateDelay(2),
		retryClient.calculateDelay(3),
		retryClient.calculateDelay(4),
		retryClient.calculateDelay(5),
	}

	expected := []time.Duration{
		100 * time.Millisecond,  // 100 * 2^0
		200 * time.Millisecond,  // 100 * 2^1
		400 * time.Millisecond,  // 100 * 2^2
		800 * time.Millisecond,  // 100 * 2^3
		1000 * time.Millisecond, // 100 * 2^4 = 1600, capped at MaxDelay
	}

	for i, delay := range delays {
		if delay != expected[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delay, expected[i])
		}
	}
}

func TestRetryClient_JitterBounds(t *testing.T) {
	config := &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            50 * time.Millisecond,
	}
	retryClient := NewRetryClient(&mockClient{}, config)

	for i := 0; i < 20; i++ {
		delay := retryClient.calculateDelay(2)
		if delay < 200*time.Millisecond || delay > 250*time.Millisecond {
			t.Fatalf("delay %v outside [200ms, 250ms]", delay)
		}
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries = 3, got %d", config.MaxRetries)
	}

	if config.InitialDelay != 1*time.Second {
		t.Errorf("expected InitialDelay = 1s, got %v", config.InitialDelay)
	}

	if config.MaxDelay != 30*time.Second {
		t.Errorf("expected MaxDelay = 30s, got %v", config.MaxDelay)
	}

	if config.BackoffMultiplier != 2.0 {
		t.Errorf("expected BackoffMultiplier = 2.0, got %f", config.BackoffMultiplier)
	}

	if config.Jitter != 1*time.Second {
		t.Errorf("expected Jitter = 1s, got %v", config.Jitter)
	}
}
