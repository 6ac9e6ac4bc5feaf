package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelforge/reelforge/internal/ports"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]ports.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []ports.SearchResult{
		{Title: "Hit for " + query, URL: "https://example.com", Content: "Some finding."},
	}, nil
}

type fakeGen struct {
	lastPrompt string
}

func (f *fakeGen) Generate(_ context.Context, req ports.GenRequest) (string, error) {
	f.lastPrompt = req.Prompt
	return "synthesized brief", nil
}

func (f *fakeGen) GenerateJSON(context.Context, ports.GenRequest) ([]byte, error) {
	return nil, errors.New("not used")
}

func TestGatherRunsBothSearches(t *testing.T) {
	searcher := &fakeSearcher{}
	gen := &fakeGen{}
	r := New(searcher, gen, zerolog.Nop())

	bundle, err := r.Gather(context.Background(), "cold showers")
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(searcher.queries) != 2 {
		t.Fatalf("queries = %v", searcher.queries)
	}
	if bundle.TopicFindings == "" || bundle.TrendFindings == "" {
		t.Fatalf("bundle incomplete: %+v", bundle)
	}
	if bundle.Synthesis != "synthesized brief" {
		t.Fatalf("synthesis = %q", bundle.Synthesis)
	}
	if !strings.Contains(gen.lastPrompt, "cold showers") {
		t.Fatalf("topic missing from synthesis prompt")
	}
	if !strings.Contains(gen.lastPrompt, "Some finding.") {
		t.Fatalf("findings missing from synthesis prompt")
	}
}

func TestGatherSearchFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	r := New(&fakeSearcher{err: boom}, &fakeGen{}, zerolog.Nop())
	if _, err := r.Gather(context.Background(), "anything"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
