package reportapi

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

// intOrZero coerces a decoded JSON value to int; anything non-numeric is 0.
func intOrZero(v any) int {
	n, _ := toInt(v)
	return n
}

// optInt keeps absent and null values absent.
func optInt(v any) *int {
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	return &n
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), true
		}
		if f, err := x.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f), true
		}
	case float64:
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			return int(x), true
		}
	case string:
		if i, err := strconv.Atoi(x); err == nil {
			return i, true
		}
	}
	return 0, false
}

func ints(v any) []int {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, len(arr))
	for i, x := range arr {
		out[i] = intOrZero(x)
	}
	return out
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		switch s := x.(type) {
		case string:
			out = append(out, s)
		case json.Number:
			out = append(out, s.String())
		case nil:
			out = append(out, "")
		default:
			b, _ := json.Marshal(s)
			out = append(out, string(b))
		}
	}
	return out
}

func runTotals(v any) domain.RunTotals {
	m, _ := v.(map[string]any)
	return domain.RunTotals{
		Visited:    intOrZero(m["visited"]),
		NotVisited: intOrZero(m["not_visited"]),
	}
}
