package dashboard

import (
	"strings"
	"testing"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

func ip(n int) *int { return &n }

func TestClassifyDelta(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		prev     *int
		delta    *int
		date     string
		kind     domain.DeltaKind
		contains string
		class    string
	}{
		{"increase without prior run date", 10, ip(8), ip(2), "", domain.Increased, "+2", ClassIncreased},
		{"unchanged", 5, ip(5), ip(0), "", domain.Unchanged, "no change", ClassUnchanged},
		{"no prior run", 5, nil, nil, "", domain.NoPriorRun, "no previous run", ClassNoPrior},
		{"decrease", 3, ip(6), ip(-3), "", domain.Decreased, "-3", ClassDecreased},
		{"delta without prev", 4, nil, ip(1), "", domain.NoPriorRun, "no previous run", ClassNoPrior},
		{"prev without delta", 4, ip(3), nil, "", domain.NoPriorRun, "no previous run", ClassNoPrior},
		{"date shown", 10, ip(8), ip(2), "2025-01-01", domain.Increased, "(2025-01-01)", ClassIncreased},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDelta(tt.current, tt.prev, tt.delta, tt.date, "visited")
			if got.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", got.Kind, tt.kind)
			}
			if !strings.Contains(got.Text, tt.contains) {
				t.Errorf("text %q does not contain %q", got.Text, tt.contains)
			}
			if got.Class != tt.class {
				t.Errorf("class = %q, want %q", got.Class, tt.class)
			}
		})
	}
}

func TestDecreaseKeepsSingleSign(t *testing.T) {
	got := ClassifyDelta(3, ip(6), ip(-3), "", "visited")
	if strings.Contains(got.Text, "+") || strings.Contains(got.Text, "--") {
		t.Errorf("text = %q", got.Text)
	}
}

func TestCards(t *testing.T) {
	cards := Cards(domain.Totals{
		Visited: 10, NotVisited: 5, Total: 15,
		PrevVisited: ip(8), DeltaVisited: ip(2),
	})
	if len(cards) != 3 {
		t.Fatalf("got %d cards", len(cards))
	}
	keys := []string{"visited", "not_visited", "total"}
	for i, c := range cards {
		if c.Key != keys[i] {
			t.Errorf("card %d key = %q, want %q", i, c.Key, keys[i])
		}
	}
	if cards[0].Delta.Kind != domain.Increased || cards[1].Delta.Kind != domain.NoPriorRun {
		t.Errorf("deltas = %v / %v", cards[0].Delta.Kind, cards[1].Delta.Kind)
	}
	if cards[2].Value != 15 {
		t.Errorf("total = %d", cards[2].Value)
	}
}

func TestProcessSummary(t *testing.T) {
	first := ProcessSummary(domain.ProcessResult{Today: domain.RunTotals{Visited: 3, NotVisited: 1}})
	for _, d := range first {
		if d.Kind != domain.NoPriorRun {
			t.Errorf("first run delta = %v", d.Kind)
		}
	}
	next := ProcessSummary(domain.ProcessResult{
		Today: domain.RunTotals{Visited: 3, NotVisited: 1},
		Prev:  &domain.RunTotals{Visited: 1, NotVisited: 1},
		Delta: &domain.RunTotals{Visited: 2, NotVisited: 0},
	})
	if next[0].Kind != domain.Increased || next[1].Kind != domain.Unchanged {
		t.Errorf("kinds = %v %v", next[0].Kind, next[1].Kind)
	}
}
