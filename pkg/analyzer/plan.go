package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// buildPlan maps a raw plan into the analyzer's operator tree.
func buildPlan(raw *RawPlan) *PlanOperator {
	if raw == nil {
		return nil
	}
	op := &PlanOperator{
		Kind:          raw.OperatorType,
		EstimatedRows: raw.EstimatedRows,
		ActualRows:    raw.Rows,
		DBHits:        raw.DBHits,
		Identifiers:   raw.Identifiers,
		Arguments:     raw.Arguments,
	}
	for i := range raw.Children {
		op.Children = append(op.Children, buildPlan(&raw.Children[i]))
	}
	return op
}

// operatorAt resolves an operator path (child indexes from the root) back
// to its operator. Used by tests and diagnostics.
func operatorAt(root *PlanOperator, path []int) *PlanOperator {
	op := root
	for _, i := range path {
		if op == nil || i < 0 || i >= len(op.Children) {
			return nil
		}
		op = op.Children[i]
	}
	return op
}

// FilePlanSource serves plans from a JSON document on disk. It backs the
// one-shot CLI analysis command; the execute flag is ignored because
// nothing ever runs.
type FilePlanSource struct {
	path string
}

// NewFilePlanSource returns a PlanSource reading the given JSON file.
func NewFilePlanSource(path string) *FilePlanSource {
	return &FilePlanSource{path: path}
}

// Plan implements PlanSource.
func (f *FilePlanSource) Plan(ctx context.Context, _ string, _ bool) (*RawPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read plan file %q: %w", f.path, err)
	}
	var raw RawPlan
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse plan file %q: %w", f.path, err)
	}
	return &raw, nil
}
