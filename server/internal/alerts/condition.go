package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// ParseCondition parses a built-in condition expression of the form
// "field op value".
//
// Supported expressions:
//
//	error_rate > 0.05
//	average_response_time > 2000
//	p95_response_time >= 800
//	p99_response_time > 1500
//	memory_usage > 0.90
//	cpu_usage > 0.80
//	throughput < 1
//	total_requests == 0
//	database_errors > 0
//	backup_status == failed
func ParseCondition(expr string) (types.Condition, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return types.Condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	c := types.Condition{Field: parts[0], Op: parts[1]}

	if isTextField(c.Field) {
		c.Text = parts[2]
	} else {
		v, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return types.Condition{}, fmt.Errorf("condition %q: threshold: %w", expr, err)
		}
		c.Threshold = v
	}
	if err := validateCondition(c); err != nil {
		return types.Condition{}, err
	}
	return c, nil
}

// validateCondition checks that a built-in condition names a known field and
// an operator valid for that field's type.
func validateCondition(c types.Condition) error {
	if c.Custom() {
		return nil
	}
	switch {
	case isTextField(c.Field):
		if c.Op != "==" && c.Op != "!=" {
			return fmt.Errorf("condition %q: operator %q not valid for text field", c, c.Op)
		}
	case isNumericField(c.Field):
		if !validOp(c.Op) {
			return fmt.Errorf("condition %q: unknown operator %q", c, c.Op)
		}
	default:
		return fmt.Errorf("condition %q: unknown field %q", c, c.Field)
	}
	return nil
}

// evalCondition evaluates cond against snap and returns whether it fires and
// the observed value (0 for text fields and custom predicates). A panicking
// predicate is reported as an error.
func evalCondition(cond types.Condition, snap types.Snapshot) (fires bool, value float64, err error) {
	if cond.Custom() {
		defer func() {
			if r := recover(); r != nil {
				fires, err = false, fmt.Errorf("predicate panicked: %v", r)
			}
		}()
		fires, err = cond.Predicate(snap)
		return fires, 0, err
	}

	if isTextField(cond.Field) {
		v, _ := textField(cond.Field, snap)
		switch cond.Op {
		case "==":
			return v == cond.Text, 0, nil
		case "!=":
			return v != cond.Text, 0, nil
		}
		return false, 0, fmt.Errorf("operator %q not valid for %s", cond.Op, cond.Field)
	}

	v, ok := numericField(cond.Field, snap)
	if !ok {
		return false, 0, fmt.Errorf("unknown field %q", cond.Field)
	}
	if !validOp(cond.Op) {
		return false, v, fmt.Errorf("unknown operator %q", cond.Op)
	}
	return compareFloat(v, cond.Op, cond.Threshold), v, nil
}

// numericField maps a field name to its value in the snapshot.
func numericField(field string, snap types.Snapshot) (float64, bool) {
	switch field {
	case "total_requests":
		return float64(snap.TotalRequests), true
	case "average_response_time":
		return snap.AverageResponseTime, true
	case "p95_response_time":
		return snap.P95ResponseTime, true
	case "p99_response_time":
		return snap.P99ResponseTime, true
	case "error_rate":
		return snap.ErrorRate, true
	case "throughput":
		return snap.Throughput, true
	case "memory_usage":
		return snap.MemoryUsage, true
	case "cpu_usage":
		return snap.CPUUsage, true
	case "database_errors":
		return snap.DatabaseErrors, true
	default:
		return 0, false
	}
}

func textField(field string, snap types.Snapshot) (string, bool) {
	if field == "backup_status" {
		return snap.BackupStatus, true
	}
	return "", false
}

func isNumericField(field string) bool {
	_, ok := numericField(field, types.Snapshot{})
	return ok
}

func isTextField(field string) bool {
	_, ok := textField(field, types.Snapshot{})
	return ok
}

func validOp(op string) bool {
	switch op {
	case ">", ">=", "<", "<=", "==", "!=":
		return true
	}
	return false
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
