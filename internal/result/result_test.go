package result

import (
	"encoding/json"
	"testing"
)

func TestOkInvariant(t *testing.T) {
	r := Ok(map[string]any{"id": "t1"})
	if err := r.Check(); err != nil {
		t.Fatal(err)
	}
	if !r.IsSuccess() || r.IsFailure() {
		t.Errorf("expected success, got %+v", r)
	}
}

func TestOkWithNilData(t *testing.T) {
	// A delete has nothing to return; success with nil data is legal.
	r := Ok(nil)
	if err := r.Check(); err != nil {
		t.Fatal(err)
	}
	if !r.Success {
		t.Error("expected success")
	}
}

func TestFailInvariant(t *testing.T) {
	r := Failf(CodeNotFound, "todo not found")
	if err := r.Check(); err != nil {
		t.Fatal(err)
	}
	if r.IsSuccess() || !r.IsFailure() {
		t.Errorf("expected failure, got %+v", r)
	}
	if r.ErrorCode() != CodeNotFound {
		t.Errorf("expected %s, got %s", CodeNotFound, r.ErrorCode())
	}
}

func TestCheckRejectsBothDataAndError(t *testing.T) {
	r := CommandResult{
		Success: false,
		Data:    "oops",
		Error:   &CommandError{Code: "X", Message: "x"},
	}
	if err := r.Check(); err == nil {
		t.Error("expected invariant violation for failure with data")
	}

	r = CommandResult{Success: true, Error: &CommandError{Code: "X", Message: "x"}}
	if err := r.Check(); err == nil {
		t.Error("expected invariant violation for success with error")
	}

	r = CommandResult{Success: false}
	if err := r.Check(); err == nil {
		t.Error("expected invariant violation for failure without error")
	}
}

func TestConfidenceRange(t *testing.T) {
	r := Ok("x").WithConfidence(0.85)
	if err := r.Check(); err != nil {
		t.Fatal(err)
	}
	r = Ok("x").WithConfidence(1.5)
	if err := r.Check(); err == nil {
		t.Error("expected out-of-range confidence to fail Check")
	}
}

func TestWithMethodsDoNotMutateOriginal(t *testing.T) {
	base := Ok("x")
	derived := base.WithConfidence(0.5).WithReasoning("because").
		WithWarnings(Warning{Message: "careful", Severity: SeverityCaution})

	if base.Confidence != nil || base.Reasoning != "" || len(base.Warnings) != 0 {
		t.Errorf("base result was mutated: %+v", base)
	}
	if derived.Confidence == nil || *derived.Confidence != 0.5 {
		t.Errorf("derived confidence wrong: %+v", derived.Confidence)
	}
	if len(derived.Warnings) != 1 {
		t.Errorf("derived warnings wrong: %+v", derived.Warnings)
	}
}

func TestAlternativesPreserveOrder(t *testing.T) {
	r := Ok("best").WithAlternatives(
		Alternative{Data: "second", Reason: "close match", Confidence: 0.8},
		Alternative{Data: "third", Reason: "partial match", Confidence: 0.5},
	)
	if r.Alternatives[0].Data != "second" || r.Alternatives[1].Data != "third" {
		t.Errorf("alternatives reordered: %+v", r.Alternatives)
	}
}

func TestJSONShape(t *testing.T) {
	r := Failf(CodeValidationError, "bad input")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["success"] != false {
		t.Errorf("expected success=false, got %v", m["success"])
	}
	if _, ok := m["data"]; ok {
		t.Error("failed result must not serialize a data field")
	}
	errObj, ok := m["error"].(map[string]any)
	if !ok || errObj["code"] != CodeValidationError {
		t.Errorf("unexpected error payload: %v", m["error"])
	}
}

func TestIsTransportCode(t *testing.T) {
	if !IsTransportCode(CodeTransportTimeout) {
		t.Error("TRANSPORT_TIMEOUT should be a transport code")
	}
	if IsTransportCode(CodeTimeout) {
		t.Error("TIMEOUT is a domain-level code, not transport")
	}
}

func TestHelperConstructors(t *testing.T) {
	r := ValidationError("invalid input for 'todo-create'", []string{"'title' must be a string"})
	if r.ErrorCode() != CodeValidationError {
		t.Fatalf("unexpected code %s", r.ErrorCode())
	}
	if r.Error.Retryable == nil || *r.Error.Retryable {
		t.Error("validation errors are never retryable")
	}
	if r.Error.Suggestion == "" {
		t.Error("every error needs a suggestion")
	}

	r = TransportError(CodeTransportConnection, "dial unix: connection refused")
	if r.Error.Retryable == nil || !*r.Error.Retryable {
		t.Error("connection failures should be retryable")
	}
}
