package plotchart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

func TestSetSeriesAndRender(t *testing.T) {
	c, err := NewFactory().NewChart("قطاع أبها")
	if err != nil {
		t.Fatal(err)
	}
	err = c.SetSeries([]string{"الصحية", "المباني", "الأسواق"}, []domain.Dataset{
		{Label: "visited", Values: []float64{3, 4, 5}},
		{Label: "not visited", Values: []float64{1, 0, 2}},
	})
	if err != nil {
		t.Fatalf("SetSeries: %v", err)
	}
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n == 0 || !strings.Contains(buf.String(), "<svg") {
		t.Errorf("output is not svg: %.80q", buf.String())
	}
}

func TestEmptyLabelsStillRender(t *testing.T) {
	c, _ := NewFactory().NewChart("empty")
	if err := c.SetSeries(nil, []domain.Dataset{{Label: "visited"}}); err != nil {
		t.Fatalf("SetSeries: %v", err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
}

func TestSetSeriesRejectsRaggedData(t *testing.T) {
	c, _ := NewFactory().NewChart("x")
	err := c.SetSeries([]string{"a", "b"}, []domain.Dataset{{Label: "v", Values: []float64{1}}})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestReleasedChartIsUnusable(t *testing.T) {
	c, _ := NewFactory().NewChart("x")
	c.SetSeries([]string{"a"}, []domain.Dataset{{Label: "v", Values: []float64{1}}})
	c.Release()
	if _, err := c.WriteTo(&bytes.Buffer{}); !errors.Is(err, ErrReleased) {
		t.Errorf("WriteTo after Release: %v", err)
	}
	if err := c.SetSeries(nil, nil); !errors.Is(err, ErrReleased) {
		t.Errorf("SetSeries after Release: %v", err)
	}
}
