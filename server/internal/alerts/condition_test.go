package alerts

import (
	"errors"
	"testing"

	"github.com/obsidianstack/sentinel/pkg/types"
)

func TestParseCondition_Numeric(t *testing.T) {
	c, err := ParseCondition("error_rate > 0.05")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	if c.Field != "error_rate" || c.Op != ">" || c.Threshold != 0.05 {
		t.Errorf("condition = %+v", c)
	}
	if c.String() != "error_rate > 0.05" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestParseCondition_Text(t *testing.T) {
	c, err := ParseCondition("backup_status == failed")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	if c.Text != "failed" {
		t.Errorf("text = %q, want failed", c.Text)
	}
}

func TestParseCondition_Invalid(t *testing.T) {
	cases := map[string]string{
		"too few parts":    "error_rate >",
		"unknown field":    "disk_usage > 0.9",
		"unknown operator": "error_rate => 0.1",
		"bad threshold":    "error_rate > lots",
		"ordering on text": "backup_status > failed",
		"too many parts":   "error_rate > 0.1 extra",
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCondition(expr); err == nil {
				t.Errorf("ParseCondition(%q) succeeded, want error", expr)
			}
		})
	}
}

func TestEvalCondition_Operators(t *testing.T) {
	snap := types.Snapshot{ErrorRate: 0.05}
	want := map[string]bool{">": false, ">=": true, "<": false, "<=": true, "==": true, "!=": false}
	for op, fires := range want {
		got, v, err := evalCondition(types.Condition{Field: "error_rate", Op: op, Threshold: 0.05}, snap)
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if got != fires {
			t.Errorf("0.05 %s 0.05 = %v, want %v", op, got, fires)
		}
		if v != 0.05 {
			t.Errorf("value = %v, want 0.05", v)
		}
	}
}

func TestEvalCondition_TextField(t *testing.T) {
	cond := types.Condition{Field: "backup_status", Op: "==", Text: "failed"}
	fires, _, _ := evalCondition(cond, types.Snapshot{BackupStatus: "failed"})
	if !fires {
		t.Error("failed backup should fire")
	}
	fires, _, _ = evalCondition(cond, types.Snapshot{BackupStatus: "ok"})
	if fires {
		t.Error("ok backup should not fire")
	}
	fires, _, _ = evalCondition(cond, types.Snapshot{})
	if fires {
		t.Error("unknown backup status should not fire")
	}
}

func TestEvalCondition_PredicateError(t *testing.T) {
	boom := errors.New("boom")
	cond := types.Condition{Predicate: func(types.Snapshot) (bool, error) { return true, boom }}
	_, _, err := evalCondition(cond, types.Snapshot{})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestEvalCondition_PredicatePanicRecovered(t *testing.T) {
	cond := types.Condition{Predicate: func(types.Snapshot) (bool, error) { panic("nil map") }}
	fires, _, err := evalCondition(cond, types.Snapshot{})
	if err == nil {
		t.Fatal("expected error from panicking predicate")
	}
	if fires {
		t.Error("panicking predicate must not fire")
	}
}
