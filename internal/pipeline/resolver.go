package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Reference tokens form a tiny path expression language:
//
//	$input                 pipeline-level input object
//	$first                 data of step 0
//	$prev                  data of the immediately preceding step
//	$steps[2]              data of step 2 by position
//	$steps.user            data of the step aliased "user"
//
// Each form takes an optional dot-path with array indices, e.g.
// $prev.items[0].id. A token that is an entire input value resolves to
// the referenced value with its type preserved; a token embedded in a
// larger string interpolates as its string form.

// refKind discriminates the reference root.
type refKind int

const (
	refInput refKind = iota
	refFirst
	refPrev
	refStepIndex
	refStepAlias
)

// pathSeg is one segment of a dot-path, optionally with array indices
// (e.g. "items[0][1]" carries Key "items" and Indices [0, 1]).
type pathSeg struct {
	Key     string
	Indices []int
}

// ref is a parsed reference token.
type ref struct {
	Kind  refKind
	Index int
	Alias string
	Path  []pathSeg
	Raw   string
}

// ResolveError describes a reference that could not be satisfied. The
// engine turns it into a VARIABLE_RESOLUTION_ERROR step failure without
// dispatching the command.
type ResolveError struct {
	Token  string
	Reason string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %s", e.Token, e.Reason)
}

// tokenPattern finds candidate reference tokens embedded in strings.
var tokenPattern = regexp.MustCompile(
	`\$(?:input\b|first\b|prev\b|steps\b)(?:\[[0-9]+\])?(?:\.[A-Za-z0-9_-]+(?:\[[0-9]+\])*)*`)

// parseRef parses a complete token. The token must start with "$".
func parseRef(token string) (ref, error) {
	r := ref{Raw: token}
	rest, ok := strings.CutPrefix(token, "$")
	if !ok {
		return r, &ResolveError{Token: token, Reason: "reference tokens start with $"}
	}

	switch {
	case rest == "input" || strings.HasPrefix(rest, "input."):
		r.Kind = refInput
		rest = strings.TrimPrefix(rest, "input")
	case rest == "first" || strings.HasPrefix(rest, "first."):
		r.Kind = refFirst
		rest = strings.TrimPrefix(rest, "first")
	case rest == "prev" || strings.HasPrefix(rest, "prev."):
		r.Kind = refPrev
		rest = strings.TrimPrefix(rest, "prev")
	case strings.HasPrefix(rest, "steps["):
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return r, &ResolveError{Token: token, Reason: "unterminated step index"}
		}
		n, err := strconv.Atoi(rest[len("steps["):end])
		if err != nil || n < 0 {
			return r, &ResolveError{Token: token, Reason: "step index must be a non-negative integer"}
		}
		r.Kind = refStepIndex
		r.Index = n
		rest = rest[end+1:]
	case strings.HasPrefix(rest, "steps."):
		rest = strings.TrimPrefix(rest, "steps.")
		alias := rest
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			alias = rest[:dot]
			rest = rest[dot:]
		} else {
			rest = ""
		}
		if alias == "" {
			return r, &ResolveError{Token: token, Reason: "missing step alias"}
		}
		r.Kind = refStepAlias
		r.Alias = alias
	default:
		return r, &ResolveError{Token: token, Reason: "unknown reference root"}
	}

	if rest == "" {
		return r, nil
	}
	path, err := parsePath(token, strings.TrimPrefix(rest, "."))
	if err != nil {
		return r, err
	}
	r.Path = path
	return r, nil
}

func parsePath(token, path string) ([]pathSeg, error) {
	var segs []pathSeg
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, &ResolveError{Token: token, Reason: "empty path segment"}
		}
		seg := pathSeg{Key: part}
		for {
			open := strings.IndexByte(seg.Key, '[')
			if open < 0 {
				break
			}
			closing := strings.IndexByte(seg.Key[open:], ']')
			if closing < 0 {
				return nil, &ResolveError{Token: token, Reason: "unterminated array index"}
			}
			idx, err := strconv.Atoi(seg.Key[open+1 : open+closing])
			if err != nil || idx < 0 {
				return nil, &ResolveError{Token: token, Reason: "array index must be a non-negative integer"}
			}
			seg.Indices = append(seg.Indices, idx)
			seg.Key = seg.Key[:open] + seg.Key[open+closing+1:]
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// history is the resolution context: the original pipeline input plus the
// results of every step executed so far.
type history struct {
	input map[string]any
	steps []StepResult
}

// aliases returns the declared aliases, sorted, for error suggestions.
func (h *history) aliases() []string {
	var names []string
	for _, s := range h.steps {
		if s.Alias != "" {
			names = append(names, s.Alias)
		}
	}
	sort.Strings(names)
	return names
}

// available renders what a failed reference could have used instead.
func (h *history) available() string {
	var b strings.Builder
	if n := len(h.steps); n == 0 {
		b.WriteString("no steps have completed yet")
	} else {
		fmt.Fprintf(&b, "step indices 0-%d are available", n-1)
	}
	if names := h.aliases(); len(names) > 0 {
		fmt.Fprintf(&b, "; declared aliases: %s", strings.Join(names, ", "))
	} else {
		b.WriteString("; no aliases declared")
	}
	return b.String()
}

// resolveRef evaluates a parsed reference against the history.
func (h *history) resolveRef(r ref) (any, error) {
	var base any
	switch r.Kind {
	case refInput:
		base = h.input
	case refFirst:
		if len(h.steps) == 0 {
			return nil, &ResolveError{Token: r.Raw, Reason: "no steps have completed yet"}
		}
		data, ok := h.steps[0].data()
		if !ok {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("step 0 (%s) produced no data (status %s)", h.steps[0].Command, h.steps[0].Status)}
		}
		base = data
	case refPrev:
		if len(h.steps) == 0 {
			return nil, &ResolveError{Token: r.Raw, Reason: "there is no previous step"}
		}
		prev := h.steps[len(h.steps)-1]
		data, ok := prev.data()
		if !ok {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("previous step (%s) produced no data (status %s)", prev.Command, prev.Status)}
		}
		base = data
	case refStepIndex:
		if r.Index >= len(h.steps) {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("step index %d is out of range", r.Index)}
		}
		data, ok := h.steps[r.Index].data()
		if !ok {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("step %d (%s) produced no data (status %s)", r.Index, h.steps[r.Index].Command, h.steps[r.Index].Status)}
		}
		base = data
	case refStepAlias:
		found := false
		for _, s := range h.steps {
			if s.Alias == r.Alias {
				data, ok := s.data()
				if !ok {
					return nil, &ResolveError{Token: r.Raw,
						Reason: fmt.Sprintf("step %q produced no data (status %s)", r.Alias, s.Status)}
				}
				base = data
				found = true
				break
			}
		}
		if !found {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("no step declared alias %q", r.Alias)}
		}
	}
	return h.walkPath(r, base)
}

func (h *history) walkPath(r ref, value any) (any, error) {
	for _, seg := range r.Path {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("path segment %q applied to a non-object value", seg.Key)}
		}
		value, ok = obj[seg.Key]
		if !ok {
			return nil, &ResolveError{Token: r.Raw,
				Reason: fmt.Sprintf("path segment %q not found", seg.Key)}
		}
		for _, idx := range seg.Indices {
			arr, ok := value.([]any)
			if !ok {
				return nil, &ResolveError{Token: r.Raw,
					Reason: fmt.Sprintf("index [%d] applied to a non-array value at %q", idx, seg.Key)}
			}
			if idx >= len(arr) {
				return nil, &ResolveError{Token: r.Raw,
					Reason: fmt.Sprintf("index [%d] out of range at %q (length %d)", idx, seg.Key, len(arr))}
			}
			value = arr[idx]
		}
	}
	return value, nil
}

// resolveValue resolves reference tokens inside an arbitrary input value.
// A string that is exactly one token keeps the referenced value's type;
// a string containing embedded tokens interpolates their string forms.
// Maps and slices are resolved recursively.
func (h *history) resolveValue(v any) (any, error) {
	switch tv := v.(type) {
	case string:
		return h.resolveString(tv)
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			resolved, err := h.resolveValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			resolved, err := h.resolveValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (h *history) resolveString(s string) (any, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	// Whole-value reference: preserve the referenced type.
	if loc := tokenPattern.FindStringIndex(s); loc != nil && loc[0] == 0 && loc[1] == len(s) {
		r, err := parseRef(s)
		if err != nil {
			return nil, err
		}
		return h.resolveRef(r)
	}

	// Embedded references interpolate as strings.
	var firstErr error
	out := tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		if firstErr != nil {
			return token
		}
		r, err := parseRef(token)
		if err != nil {
			firstErr = err
			return token
		}
		value, err := h.resolveRef(r)
		if err != nil {
			firstErr = err
			return token
		}
		return stringify(value)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// stringify renders a resolved value for string interpolation. Scalars
// use their natural form; objects and arrays render as JSON.
func stringify(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return cast.ToString(v)
	}
}

// resolveInput resolves every reference in a step's input map.
func (h *history) resolveInput(input map[string]any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}
	resolved, err := h.resolveValue(input)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}
