package pipeline

import (
	"github.com/spf13/cast"
)

// Conditions gate step execution. The grammar is a single-operator JSON
// object; comparison operands are [reference, literal] pairs:
//
//	{"$exists": "$prev.id"}
//	{"$eq": ["$prev.status", "open"]}
//	{"$gt": ["$prev.total", 10]}
//	{"$and": [cond, cond]}  {"$or": [...]}  {"$not": cond}
//
// A condition that fails to resolve its reference evaluates to false;
// conditions gate, they don't fail pipelines.
func (h *history) evalCondition(cond map[string]any) bool {
	if len(cond) != 1 {
		return false
	}
	for op, operand := range cond {
		switch op {
		case "$exists":
			token, ok := operand.(string)
			if !ok {
				return false
			}
			value, err := h.resolveString(token)
			return err == nil && value != nil
		case "$eq":
			value, expected, ok := h.comparison(operand)
			return ok && equal(value, expected)
		case "$ne":
			value, expected, ok := h.comparison(operand)
			return ok && !equal(value, expected)
		case "$gt":
			return h.numericCompare(operand, func(a, b float64) bool { return a > b })
		case "$gte":
			return h.numericCompare(operand, func(a, b float64) bool { return a >= b })
		case "$lt":
			return h.numericCompare(operand, func(a, b float64) bool { return a < b })
		case "$lte":
			return h.numericCompare(operand, func(a, b float64) bool { return a <= b })
		case "$and":
			conds, ok := operand.([]any)
			if !ok {
				return false
			}
			for _, c := range conds {
				sub, ok := c.(map[string]any)
				if !ok || !h.evalCondition(sub) {
					return false
				}
			}
			return true
		case "$or":
			conds, ok := operand.([]any)
			if !ok {
				return false
			}
			for _, c := range conds {
				if sub, ok := c.(map[string]any); ok && h.evalCondition(sub) {
					return true
				}
			}
			return false
		case "$not":
			sub, ok := operand.(map[string]any)
			return ok && !h.evalCondition(sub)
		}
	}
	return false
}

// comparison unpacks a [reference, literal] operand pair and resolves
// the reference.
func (h *history) comparison(operand any) (value, expected any, ok bool) {
	pair, isPair := operand.([]any)
	if !isPair || len(pair) != 2 {
		return nil, nil, false
	}
	token, isString := pair[0].(string)
	if !isString {
		return nil, nil, false
	}
	resolved, err := h.resolveString(token)
	if err != nil {
		return nil, nil, false
	}
	return resolved, pair[1], true
}

func (h *history) numericCompare(operand any, cmp func(a, b float64) bool) bool {
	value, expected, ok := h.comparison(operand)
	if !ok {
		return false
	}
	a, errA := cast.ToFloat64E(value)
	b, errB := cast.ToFloat64E(expected)
	if errA != nil || errB != nil {
		return false
	}
	return cmp(a, b)
}

// equal compares scalars loosely enough to survive JSON number decoding
// (all JSON numbers arrive as float64).
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, errA := cast.ToFloat64E(a); errA == nil {
		if bf, errB := cast.ToFloat64E(b); errB == nil {
			return af == bf
		}
	}
	return a == b
}
