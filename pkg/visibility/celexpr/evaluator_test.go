package celexpr

import (
	"testing"

	"github.com/goliatone/go-formflow/pkg/visibility"
)

func TestEvaluator_Eval(t *testing.T) {
	eval, err := New("country", "newsletter", "brand")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	cases := []struct {
		name   string
		rule   string
		ctx    visibility.Context
		expect bool
	}{
		{name: "empty rule", rule: "  ", expect: true},
		{name: "bare identifier match", rule: "country == 'FR'", ctx: visibility.Context{Values: map[string]any{"country": "FR"}}, expect: true},
		{name: "bare identifier mismatch", rule: "country == 'FR'", ctx: visibility.Context{Values: map[string]any{"country": "DE"}}, expect: false},
		{name: "absent value is null", rule: "country == 'FR'", expect: false},
		{name: "data map access", rule: "has(data.newsletter) && data.newsletter == true", ctx: visibility.Context{Values: map[string]any{"newsletter": true}}, expect: true},
		{name: "list membership", rule: "'sony' in brand", ctx: visibility.Context{Values: map[string]any{"brand": []any{"apple", "sony"}}}, expect: true},
		{name: "extras", rule: "extras.role == 'admin'", ctx: visibility.Context{Extras: map[string]any{"role": "admin"}}, expect: true},
		{name: "field name", rule: "field == 'city'", expect: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := eval.Eval("city", tc.rule, tc.ctx)
			if err != nil {
				t.Fatalf("eval %q: %v", tc.rule, err)
			}
			if got != tc.expect {
				t.Fatalf("eval %q = %v, want %v", tc.rule, got, tc.expect)
			}
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	eval, err := New("country")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := eval.Eval("x", "unknown_field == 1", visibility.Context{}); err == nil {
		t.Fatalf("expected compile error for undeclared identifier")
	}
	if _, err := eval.Eval("x", "'not a bool'", visibility.Context{}); err == nil {
		t.Fatalf("expected error for non-boolean result")
	}
}

func TestEvaluator_CachesPrograms(t *testing.T) {
	eval, err := New("country")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := eval.Eval("x", "country != null", visibility.Context{}); err != nil {
			t.Fatalf("eval: %v", err)
		}
	}
	if len(eval.programs) != 1 {
		t.Fatalf("expected one cached program, got %d", len(eval.programs))
	}
}

func TestEvaluator_Compile(t *testing.T) {
	eval, err := New("gift")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := eval.Compile("gift == true"); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := eval.Compile(""); err != nil {
		t.Fatalf("empty rule must compile: %v", err)
	}
	if err := eval.Compile("gift =="); err == nil {
		t.Fatalf("expected syntax error")
	}
}
