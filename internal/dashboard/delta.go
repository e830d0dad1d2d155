package dashboard

import (
	"fmt"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

// CSS classes attached to delta indicators.
const (
	ClassNoPrior   = "delta-none"
	ClassIncreased = "delta-up"
	ClassDecreased = "delta-down"
	ClassUnchanged = "delta-same"
)

// ClassifyDelta decides how a metric compares with the previous run.
// A delta without its previous value is treated as no prior run. An unknown
// prior run date is not: the backend never sends one, so it only decorates
// the text when present.
func ClassifyDelta(current int, prev, delta *int, prevRunDate, label string) domain.Delta {
	if prev == nil || delta == nil {
		return domain.Delta{
			Kind:  domain.NoPriorRun,
			Text:  fmt.Sprintf("no previous run to compare %s against", label),
			Class: ClassNoPrior,
		}
	}

	suffix := " vs previous run"
	if prevRunDate != "" {
		suffix += " (" + prevRunDate + ")"
	}

	d := *delta
	switch {
	case d > 0:
		return domain.Delta{Kind: domain.Increased, Text: fmt.Sprintf("+%d %s%s", d, label, suffix), Class: ClassIncreased}
	case d < 0:
		return domain.Delta{Kind: domain.Decreased, Text: fmt.Sprintf("%d %s%s", d, label, suffix), Class: ClassDecreased}
	default:
		return domain.Delta{Kind: domain.Unchanged, Text: fmt.Sprintf("no change in %s%s", label, suffix), Class: ClassUnchanged}
	}
}

// Cards builds the three summary cards of a totals payload.
func Cards(t domain.Totals) []domain.Card {
	return []domain.Card{
		{Key: "visited", Label: "تمت الزيارة", Value: t.Visited,
			Delta: ClassifyDelta(t.Visited, t.PrevVisited, t.DeltaVisited, t.PrevRunDate, "visited")},
		{Key: "not_visited", Label: "لم تُزر", Value: t.NotVisited,
			Delta: ClassifyDelta(t.NotVisited, t.PrevNotVisited, t.DeltaNotVisited, t.PrevRunDate, "not visited")},
		{Key: "total", Label: "إجمالي الرخص", Value: t.Total,
			Delta: ClassifyDelta(t.Total, t.PrevTotal, t.DeltaTotal, t.PrevRunDate, "total")},
	}
}

// ProcessSummary describes an upload run against the previous one.
func ProcessSummary(r domain.ProcessResult) []domain.Delta {
	var prevV, prevN, dV, dN *int
	if r.Prev != nil && r.Delta != nil {
		prevV, prevN = &r.Prev.Visited, &r.Prev.NotVisited
		dV, dN = &r.Delta.Visited, &r.Delta.NotVisited
	}
	return []domain.Delta{
		ClassifyDelta(r.Today.Visited, prevV, dV, "", "visited"),
		ClassifyDelta(r.Today.NotVisited, prevN, dN, "", "not visited"),
	}
}
