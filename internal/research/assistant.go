package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sharanm/rare-disease-radar/backend/internal/sources"
)

// InsufficientData is returned for ad-hoc queries when no source produced a
// digest. It is a soft failure, not an error.
const InsufficientData = "I couldn't find enough relevant information to answer your query."

// AnalysisType names one of the fixed daily analysis categories.
type AnalysisType string

const (
	RecentTrends AnalysisType = "recent_trends"
	Clinical     AnalysisType = "clinical"
	Research     AnalysisType = "research"
)

// AnalysisTypes lists the daily categories in their canonical order.
func AnalysisTypes() []AnalysisType {
	return []AnalysisType{RecentTrends, Clinical, Research}
}

var analysisQueries = map[AnalysisType]string{
	RecentTrends: "current trends in rare disease research",
	Clinical:     "latest clinical trials and treatments for rare diseases",
	Research:     "current medical research on rare diseases",
}

// Synthesizer condenses an aggregated document into a prose summary.
type Synthesizer interface {
	Summarize(ctx context.Context, query, document string) (string, error)
}

// Assistant fans a query out to every registered source, aggregates the
// digests that came back, and hands the result to the synthesizer.
type Assistant struct {
	sources []sources.Source
	synth   Synthesizer
	log     *slog.Logger
}

// NewAssistant wires the orchestrator. Source order is preserved: digests
// appear in the aggregate document in registration order.
func NewAssistant(srcs []sources.Source, synth Synthesizer, log *slog.Logger) *Assistant {
	return &Assistant{sources: srcs, synth: synth, log: log}
}

// RunQuery answers an ad-hoc query. Individual source failures are logged
// and skipped; the run proceeds as long as at least one source produced a
// digest. With zero digests the insufficient-data sentinel is returned
// without consulting the synthesizer. A synthesis failure is an error.
func (a *Assistant) RunQuery(ctx context.Context, query string) (string, error) {
	document := a.aggregate(ctx, query)
	if document == "" {
		return InsufficientData, nil
	}

	synthesis, err := a.synth.Summarize(ctx, query, document)
	if err != nil {
		return "", fmt.Errorf("synthesize response: %w", err)
	}
	return synthesis, nil
}

// RunAnalysis maps an analysis type onto its canned query and follows the
// same fan-out path. An empty result means no source had data.
func (a *Assistant) RunAnalysis(ctx context.Context, typ AnalysisType) (string, error) {
	query, ok := analysisQueries[typ]
	if !ok {
		return "", fmt.Errorf("unknown analysis type %q", typ)
	}

	document := a.aggregate(ctx, query)
	if document == "" {
		return "", nil
	}

	synthesis, err := a.synth.Summarize(ctx, query, document)
	if err != nil {
		return "", fmt.Errorf("synthesize %s analysis: %w", typ, err)
	}
	return synthesis, nil
}

// aggregate collects one digest per source and concatenates the non-empty
// ones under labeled section headers.
func (a *Assistant) aggregate(ctx context.Context, query string) string {
	var sections []string

	for _, src := range a.sources {
		digest, err := src.FetchAndSummarize(ctx, query)
		if err != nil {
			a.log.Warn("source failed, skipping",
				slog.String("source", src.Name()),
				slog.Any("err", err),
			)
			continue
		}
		if strings.TrimSpace(digest) == "" {
			a.log.Debug("source returned no data", slog.String("source", src.Name()))
			continue
		}

		sections = append(sections, fmt.Sprintf("=== %s ===\n%s", strings.ToUpper(src.Name()), digest))
	}

	return strings.Join(sections, "\n\n")
}
