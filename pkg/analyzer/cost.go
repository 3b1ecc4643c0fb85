package analyzer

// estimateCost sums per-operator work across the plan and tracks the
// single heaviest operator. Profiled plans sum db_hits; explain-only plans
// fall back to planner row estimates. The two bases are not comparable;
// the result names which one it used.
func estimateCost(root *PlanOperator) CostEstimate {
	if root == nil {
		return CostEstimate{Basis: BasisEstimatedRows}
	}

	basis := BasisEstimatedRows
	if hasDBHits(root) {
		basis = BasisDBHits
	}

	var aggregate, maxSingle int64
	visit(root, func(op *PlanOperator) {
		var v int64
		if basis == BasisDBHits {
			if op.DBHits != nil {
				v = *op.DBHits
			}
		} else {
			v = int64(op.EstimatedRows)
		}
		aggregate += v
		if v > maxSingle {
			maxSingle = v
		}
	})

	return CostEstimate{
		Aggregate:         aggregate,
		MaxSingleOperator: maxSingle,
		Basis:             basis,
	}
}

func hasDBHits(op *PlanOperator) bool {
	if op.DBHits != nil {
		return true
	}
	for _, child := range op.Children {
		if hasDBHits(child) {
			return true
		}
	}
	return false
}

func visit(op *PlanOperator, fn func(*PlanOperator)) {
	fn(op)
	for _, child := range op.Children {
		visit(child, fn)
	}
}
