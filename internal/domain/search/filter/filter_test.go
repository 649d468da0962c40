package filter

import "testing"

func TestNewMatch(t *testing.T) {
	cond, err := NewMatch("category", "pricing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cond.Key() != "category" || cond.Match() != "pricing" {
		t.Errorf("unexpected condition: %+v", cond)
	}

	if _, err := NewMatch("", "v"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("k", ""); err == nil {
		t.Error("expected error for empty match value")
	}
}

func TestNewExpression_Limits(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		c, err := NewMatch("k", "v")
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		conds[i] = c
	}

	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for too many must conditions")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for too many should conditions")
	}
	if _, err := NewExpression(nil, nil, conds); err == nil {
		t.Error("expected error for too many must_not conditions")
	}

	if _, err := NewExpression(conds[:MaxConditionsPerGroup], nil, nil); err != nil {
		t.Errorf("unexpected error at the limit: %v", err)
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	if !(Expression{}).IsEmpty() {
		t.Error("zero expression must be empty")
	}

	cond, err := NewMatch("k", "v")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	expr, err := MustAll(cond)
	if err != nil {
		t.Fatalf("MustAll: %v", err)
	}
	if expr.IsEmpty() {
		t.Error("populated expression must not be empty")
	}
	if len(expr.Must()) != 1 {
		t.Errorf("expected 1 must condition, got %d", len(expr.Must()))
	}
}
