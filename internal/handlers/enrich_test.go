package handlers

import (
	"context"
	"errors"
	"testing"

	"leadcrm/internal/services"
)

type fakeScorer struct {
	scores  map[string]int
	failFor map[string]error
	calls   []string
}

func (f *fakeScorer) ScoreLead(ctx context.Context, leadID string) (*services.ScoringResult, error) {
	f.calls = append(f.calls, leadID)
	if err, ok := f.failFor[leadID]; ok {
		return nil, err
	}
	return &services.ScoringResult{Score: f.scores[leadID]}, nil
}

func TestScoreLeadsBatch(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{
		scores:  map[string]int{"lead-1": 80, "lead-3": 55},
		failFor: map[string]error{"lead-2": errors.New("lead not found")},
	}

	scored, results := scoreLeadsBatch(context.Background(), scorer, []string{"lead-1", "lead-2", "lead-3"})

	if scored != 2 {
		t.Errorf("scored = %d, want 2", scored)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if len(scorer.calls) != 3 {
		t.Errorf("scorer called %d times, want 3 (failure must not stop the batch)", len(scorer.calls))
	}

	if results[0].LeadID != "lead-1" || results[0].Score == nil || results[0].Score.Score != 80 {
		t.Errorf("results[0] = %+v, want lead-1 scored 80", results[0])
	}
	if results[1].LeadID != "lead-2" || results[1].Error != "lead not found" || results[1].Score != nil {
		t.Errorf("results[1] = %+v, want lead-2 failed with no score", results[1])
	}
	if results[2].LeadID != "lead-3" || results[2].Score == nil || results[2].Score.Score != 55 {
		t.Errorf("results[2] = %+v, want lead-3 scored 55", results[2])
	}
}

func TestScoreLeadsBatchAllFail(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{
		failFor: map[string]error{"a": errors.New("boom"), "b": errors.New("boom")},
	}
	scored, results := scoreLeadsBatch(context.Background(), scorer, []string{"a", "b"})

	if scored != 0 {
		t.Errorf("scored = %d, want 0", scored)
	}
	for _, r := range results {
		if r.Error == "" {
			t.Errorf("result %s has no error, want one", r.LeadID)
		}
	}
}
