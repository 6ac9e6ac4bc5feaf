// Package research gathers grounding material before the creative
// phases. Topic and trend searches run in parallel, then a model pass
// distills the hits into a brief the script writer can quote.
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/ports"
	"github.com/reelforge/reelforge/internal/types"
)

const maxResultsPerQuery = 5

// Researcher runs the research phase of a v2 flow.
type Researcher struct {
	searcher ports.Searcher
	gen      ports.StructuredGenerator
	log      zerolog.Logger
}

func New(searcher ports.Searcher, gen ports.StructuredGenerator, log zerolog.Logger) *Researcher {
	return &Researcher{searcher: searcher, gen: gen, log: log}
}

// Gather searches the topic and its current angle concurrently and
// synthesizes the findings. A run can proceed without research, so both
// searches failing is an error but partial results are used as is.
func (r *Researcher) Gather(ctx context.Context, topic string) (types.ResearchBundle, error) {
	var bundle types.ResearchBundle

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := r.searcher.Search(gctx, topic, maxResultsPerQuery)
		if err != nil {
			return fmt.Errorf("topic search: %w", err)
		}
		bundle.TopicFindings = renderResults(results)
		return nil
	})
	g.Go(func() error {
		query := fmt.Sprintf("%s latest news and trends", topic)
		results, err := r.searcher.Search(gctx, query, maxResultsPerQuery)
		if err != nil {
			return fmt.Errorf("trend search: %w", err)
		}
		bundle.TrendFindings = renderResults(results)
		return nil
	})
	if err := g.Wait(); err != nil {
		return bundle, err
	}

	synthesis, err := r.synthesize(ctx, topic, bundle)
	if err != nil {
		return bundle, err
	}
	bundle.Synthesis = synthesis
	return bundle, nil
}

func (r *Researcher) synthesize(ctx context.Context, topic string, bundle types.ResearchBundle) (string, error) {
	prompt := fmt.Sprintf(
		"Topic: %s\n\nBackground findings:\n%s\n\nCurrent angle findings:\n%s\n\n"+
			"Distill these findings into a concise research brief: key facts, numbers worth citing, "+
			"and the freshest angle. Plain text, under 300 words.",
		topic, bundle.TopicFindings, bundle.TrendFindings)
	return r.gen.Generate(ctx, ports.GenRequest{
		System: "You are a research assistant preparing briefs for a video script writer.",
		Prompt: prompt,
	})
}

func renderResults(results []ports.SearchResult) string {
	var sb strings.Builder
	for _, res := range results {
		fmt.Fprintf(&sb, "- %s (%s)\n  %s\n", res.Title, res.URL, res.Content)
	}
	return sb.String()
}
