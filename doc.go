// Package dmpbuilder provides a resilient multi-provider orchestration core
// for generating structured clinical documents from large language models.
//
// The core decides which of two interchangeable providers, a high-fidelity
// one (small context, stronger reasoning, costlier) and a high-throughput
// one (large context, cheaper), handles which piece of work, enforces rate
// and retry discipline against flaky network services, recovers structured
// data from semi-reliable free-text model output, and reconciles partial
// results into one coherent answer.
//
// # Basic Usage
//
// Build a client from configuration and process a document:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := dmpbuilder.NewClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, metrics, err := orchestrator.ProcessWholeDocument(ctx, client.Orchestrator(), protocolText,
//		func(ctx context.Context, p provider.Client, text string) (StudyDesign, error) {
//			resp, err := p.GenerateContent(ctx, buildPrompt(text))
//			if err != nil {
//				return StudyDesign{}, err
//			}
//			return reconcile.Reconcile(resp.Content, validateStudyDesign, fallbackDesign).Value, nil
//		}, nil)
//
// # Reconciliation
//
// Model output is not guaranteed to be valid JSON. The reconcile package
// runs an ordered extraction and repair cascade (fenced block, boundary
// trim, bracket scan, truncation repair, deep repair) and degrades to a
// caller-supplied fallback value rather than failing the pipeline. The
// result carries a provenance flag so consumers can surface degradations to
// a human reviewer.
//
// # Routing
//
// The router spends a bounded budget of high-fidelity calls on critical
// sections (endpoints, safety, inclusion/exclusion criteria); everything
// else goes high-throughput. Documents under a configurable token threshold
// are processed whole by the high-fidelity provider; larger documents go
// high-throughput with an optional bounded enhancement pass afterwards.
//
// # Architecture
//
//   - pkg/provider: content provider clients and resilience wrappers
//   - pkg/reconcile: structured-output recovery cascade
//   - pkg/router: per-chunk and whole-document provider assignment
//   - pkg/merge: ordered chunk merge and field-overlay enhancement merge
//   - pkg/chunker: document analysis and splitting collaborator
//   - pkg/orchestrator: the top-level facade and state machine
package dmpbuilder
