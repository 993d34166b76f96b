package dmpbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	builder "github.com/sahasand/dmpbuilder"
	"github.com/sahasand/dmpbuilder/pkg/chunker"
	"github.com/sahasand/dmpbuilder/pkg/config"
	"github.com/sahasand/dmpbuilder/pkg/orchestrator"
	"github.com/sahasand/dmpbuilder/pkg/provider"
	"github.com/sahasand/dmpbuilder/pkg/reconcile"
	"github.com/sahasand/dmpbuilder/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [protocol file]",
	Short: "Generate a data management plan from a protocol document",
	Long: `Generate reads a free-text clinical protocol, extracts the case report
forms it implies, and writes the result as JSON. Small documents are processed
whole by the high-fidelity provider; large documents are chunked, processed by
the high-throughput provider, and optionally re-enhanced on critical sections.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	generateOutput  string
	generateDocType string
	generatePrefer  string
	generateEnhance bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output file (default stdout)")
	generateCmd.Flags().StringVar(&generateDocType, "doc-type", "protocol", "document type (protocol, crf, generic)")
	generateCmd.Flags().StringVar(&generatePrefer, "prefer", "", "provider preference (high_fidelity, high_throughput)")
	generateCmd.Flags().BoolVar(&generateEnhance, "enhance", true, "re-process critical sections with the high-fidelity provider")
}

// FormSpec describes one case report form extracted from the protocol.
type FormSpec struct {
	FormName string   `json:"formName"`
	Section  string   `json:"section,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

// Plan is the generated data management plan.
type Plan struct {
	Forms []FormSpec `json:"forms"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read protocol: %w", err)
	}
	text := string(raw)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := builder.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}
	defer client.Close()

	docType := types.DocType(generateDocType)
	ctx := context.WithValue(cmd.Context(), types.ContextKeyRequestID, uuid.New().String())
	ctx = context.WithValue(ctx, types.ContextKeyDocType, string(docType))

	opts := client.DefaultOptions(cfg)
	opts.PreferredProvider = types.ProviderID(generatePrefer)

	plan, metrics, err := generatePlan(ctx, client.Orchestrator(), text, docType, cfg, opts)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, out, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Println(string(out))
	}

	slog.Info("generation complete",
		"forms", len(plan.Forms),
		"chunks", metrics.TotalChunks,
		"high_fidelity_calls", metrics.ProviderCounts[types.ProviderHighFidelity],
		"high_throughput_calls", metrics.ProviderCounts[types.ProviderHighThroughput],
		"enhanced_sections", metrics.EnhancedSections,
		"elapsed_ms", metrics.ProcessingTimeMs,
	)
	return nil
}

// generatePlan selects whole-document or chunked processing by document size
// and runs the optional enhancement pass.
func generatePlan(ctx context.Context, o *orchestrator.Orchestrator, text string, docType types.DocType, cfg *config.Config, opts *orchestrator.Options) (Plan, *types.UsageMetrics, error) {
	if chunker.EstimateTokens(text) < cfg.Routing.WholeDocumentTokenThreshold {
		plan, metrics, err := orchestrator.ProcessWholeDocument(ctx, o, text, extractForms, opts)
		return plan, metrics, err
	}

	plan, metrics, err := orchestrator.ProcessChunked(ctx, o, text, docType, extractForms, mergePlans, opts)
	if err != nil {
		return Plan{}, metrics, err
	}

	if generateEnhance {
		enhanced, applied, err := orchestrator.EnhanceCriticalSections(ctx, o, plan, text, enhanceSection, opts, metrics)
		if err != nil {
			return Plan{}, metrics, err
		}
		if len(applied) > 0 {
			slog.Info("critical sections enhanced", "sections", applied)
		}
		plan = enhanced
	}

	return plan, metrics, nil
}

// extractForms prompts the provider for the forms implied by one unit of text
// and reconciles the response. An unusable response degrades to an empty form
// list rather than failing the run.
func extractForms(ctx context.Context, client provider.Client, content string) (Plan, error) {
	resp, err := client.GenerateContent(ctx, formPrompt(content))
	if err != nil {
		return Plan{}, err
	}

	result := reconcile.Reconcile(resp.Content, validatePlan, Plan{})
	if result.FromFallback {
		slog.Warn("form extraction degraded to empty plan", "provider", client.ID())
	}
	return result.Value, nil
}

// mergePlans concatenates per-chunk form lists in chunk order.
func mergePlans(partials []Plan) (Plan, error) {
	var plan Plan
	for _, partial := range partials {
		plan.Forms = append(plan.Forms, partial.Forms...)
	}
	return plan, nil
}

// enhanceSection re-extracts one critical section with the high-fidelity
// provider. The overlay replaces forms attributed to that section and keeps
// everything else untouched.
func enhanceSection(ctx context.Context, client provider.Client, section types.Section) (func(Plan) Plan, error) {
	resp, err := client.GenerateContent(ctx, formPrompt(section.Content))
	if err != nil {
		return nil, err
	}

	result := reconcile.Reconcile(resp.Content, validatePlan, Plan{})
	if result.FromFallback || len(result.Value.Forms) == 0 {
		return nil, fmt.Errorf("no usable forms extracted for section %q", section.Name)
	}

	replacement := result.Value.Forms
	for i := range replacement {
		replacement[i].Section = section.Name
	}

	return func(base Plan) Plan {
		updated := Plan{Forms: make([]FormSpec, 0, len(base.Forms)+len(replacement))}
		for _, form := range base.Forms {
			if form.Section != section.Name {
				updated.Forms = append(updated.Forms, form)
			}
		}
		updated.Forms = append(updated.Forms, replacement...)
		return updated
	}, nil
}

// validatePlan rejects parses that are structurally JSON but not a plan.
func validatePlan(plan Plan) error {
	for _, form := range plan.Forms {
		if strings.TrimSpace(form.FormName) == "" {
			return fmt.Errorf("form with empty name")
		}
	}
	return nil
}

func formPrompt(content string) string {
	var b strings.Builder
	b.WriteString("Extract the case report forms implied by the following clinical protocol text. ")
	b.WriteString("Respond with JSON only, in this shape: ")
	b.WriteString(`{"forms":[{"formName":"...","section":"...","fields":["..."]}]}`)
	b.WriteString("\n\nProtocol text:\n\n")
	b.WriteString(content)
	return b.String()
}
