package pipeline

import "testing"

func condHistory() *history {
	return &history{
		input: map[string]any{"mode": "full"},
		steps: []StepResult{
			okStep(0, "stats", map[string]any{
				"total":  float64(7),
				"status": "open",
			}),
		},
	}
}

func TestEvalConditionExists(t *testing.T) {
	h := condHistory()
	if !h.evalCondition(map[string]any{"$exists": "$prev.total"}) {
		t.Error("$exists on present field should be true")
	}
	if h.evalCondition(map[string]any{"$exists": "$prev.nope"}) {
		t.Error("$exists on missing field should be false, not an error")
	}
}

func TestEvalConditionComparisons(t *testing.T) {
	h := condHistory()
	cases := []struct {
		cond map[string]any
		want bool
	}{
		{map[string]any{"$eq": []any{"$prev.status", "open"}}, true},
		{map[string]any{"$eq": []any{"$prev.status", "done"}}, false},
		{map[string]any{"$ne": []any{"$prev.status", "done"}}, true},
		{map[string]any{"$gt": []any{"$prev.total", float64(5)}}, true},
		{map[string]any{"$gt": []any{"$prev.total", float64(7)}}, false},
		{map[string]any{"$gte": []any{"$prev.total", float64(7)}}, true},
		{map[string]any{"$lt": []any{"$prev.total", float64(10)}}, true},
		{map[string]any{"$lte": []any{"$prev.total", float64(6)}}, false},
	}
	for i, tc := range cases {
		if got := h.evalCondition(tc.cond); got != tc.want {
			t.Errorf("case %d: %v = %v, want %v", i, tc.cond, got, tc.want)
		}
	}
}

func TestEvalConditionLogical(t *testing.T) {
	h := condHistory()
	and := map[string]any{"$and": []any{
		map[string]any{"$exists": "$prev.total"},
		map[string]any{"$eq": []any{"$prev.status", "open"}},
	}}
	if !h.evalCondition(and) {
		t.Error("$and should be true")
	}

	or := map[string]any{"$or": []any{
		map[string]any{"$eq": []any{"$prev.status", "done"}},
		map[string]any{"$gt": []any{"$prev.total", float64(1)}},
	}}
	if !h.evalCondition(or) {
		t.Error("$or should be true")
	}

	not := map[string]any{"$not": map[string]any{"$eq": []any{"$prev.status", "done"}}}
	if !h.evalCondition(not) {
		t.Error("$not should be true")
	}
}

func TestEvalConditionMalformed(t *testing.T) {
	h := condHistory()
	for _, cond := range []map[string]any{
		{},
		{"$eq": "not-a-pair"},
		{"$gt": []any{"$prev.status", float64(1)}}, // non-numeric operand
		{"$unknown": true},
		{"$eq": []any{"$prev.total", float64(7)}, "$ne": []any{"$prev.total", float64(7)}},
	} {
		if h.evalCondition(cond) {
			t.Errorf("malformed condition %v should evaluate false", cond)
		}
	}
}
