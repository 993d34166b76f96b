package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/sahasand/dmpbuilder/pkg/types"
)

// UsageRecord is a single log entry for provider token usage.
type UsageRecord struct {
	ID               string    `parquet:"id"`
	Timestamp        time.Time `parquet:"timestamp"`
	Provider         string    `parquet:"provider"`
	Model            string    `parquet:"model"`
	TotalTokens      int       `parquet:"total_tokens"`
	PromptTokens     int       `parquet:"prompt_tokens"`
	CompletionTokens int       `parquet:"completion_tokens"`
	RequestID        string    `parquet:"request_id"`
	DocType          string    `parquet:"doc_type"`
}

// ParquetUsageTracker persists usage records to Parquet files in batches.
type ParquetUsageTracker struct {
	outputDir string
	mu        sync.Mutex
	buffer    []UsageRecord
	batchSize int
}

// NewUsageTracker creates a tracker writing to a directory.
func NewUsageTracker(outputDir string) (*ParquetUsageTracker, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage tracking directory: %w", err)
	}

	return &ParquetUsageTracker{
		outputDir: outputDir,
		buffer:    make([]UsageRecord, 0, 100),
		batchSize: 100,
	}, nil
}

// AddUsage buffers one usage record, flushing when the batch fills.
func (t *ParquetUsageTracker) AddUsage(ctx context.Context, usage *types.TokenUsage, provider types.ProviderID, model string) error {
	if usage == nil {
		return nil
	}

	record := UsageRecord{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		Provider:         string(provider),
		Model:            model,
		TotalTokens:      usage.TotalTokens,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}

	if v, ok := ctx.Value(types.ContextKeyRequestID).(string); ok {
		record.RequestID = v
	}
	if v, ok := ctx.Value(types.ContextKeyDocType).(string); ok {
		record.DocType = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.buffer = append(t.buffer, record)

	if len(t.buffer) >= t.batchSize {
		return t.flush()
	}

	return nil
}

// Flush writes any buffered records to a new Parquet file.
func (t *ParquetUsageTracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flush()
}

// flush writes the current buffer. Caller must hold the lock.
func (t *ParquetUsageTracker) flush() error {
	if len(t.buffer) == 0 {
		return nil
	}

	filename := fmt.Sprintf("usage_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	path := filepath.Join(t.outputDir, filename)

	if err := parquet.WriteFile(path, t.buffer); err != nil {
		return fmt.Errorf("failed to write usage parquet file: %w", err)
	}

	t.buffer = t.buffer[:0]
	return nil
}

// UsageTrackingClient wraps a Client to record token usage per call.
type UsageTrackingClient struct {
	client  Client
	tracker *ParquetUsageTracker
}

// NewUsageTrackingClient creates a wrapper client.
func NewUsageTrackingClient(client Client, tracker *ParquetUsageTracker) *UsageTrackingClient {
	return &UsageTrackingClient{
		client:  client,
		tracker: tracker,
	}
}

// GenerateContent implements Client.
func (c *UsageTrackingClient) GenerateContent(ctx context.Context, prompt string) (*types.Response, error) {
	resp, err := c.client.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if resp.TokensUsed != nil {
		model := resp.Model
		if model == "" {
			model = "unknown"
		}

		if err := c.tracker.AddUsage(ctx, resp.TokensUsed, c.client.ID(), model); err != nil {
			slog.Warn("failed to log token usage", "provider", c.client.ID(), "error", err)
		}
	}

	return resp, nil
}

// ID implements Client.
func (c *UsageTrackingClient) ID() types.ProviderID {
	return c.client.ID()
}

// Close flushes buffered records and closes the wrapped client.
func (c *UsageTrackingClient) Close() error {
	if err := c.tracker.Flush(); err != nil {
		slog.Warn("failed to flush usage tracker", "error", err)
	}
	return c.client.Close()
}
