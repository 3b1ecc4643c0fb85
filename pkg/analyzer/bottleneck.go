package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"kronos-hq/cerberus/pkg/schema"
)

// detector walks one plan and collects bottlenecks. A fresh detector is
// built per analysis call; it holds no state across plans.
type detector struct {
	cfg     *Config
	catalog *schema.Catalog

	bottlenecks []Bottleneck
	seen        map[string]bool // (kind, path) dedup
	hasLimit    bool
}

func newDetector(cfg *Config, catalog *schema.Catalog) *detector {
	return &detector{
		cfg:     cfg,
		catalog: catalog,
		seen:    make(map[string]bool),
	}
}

// detect runs all checks over the plan and returns the bottlenecks in
// detection order.
func (d *detector) detect(root *PlanOperator) []Bottleneck {
	if root == nil {
		return nil
	}
	d.hasLimit = containsLimit(root)
	d.checkRoot(root)
	d.walk(root, nil)
	return d.bottlenecks
}

func (d *detector) walk(op *PlanOperator, path []int) {
	d.checkCartesian(op, path)
	d.checkMissingIndex(op, path)
	d.checkExpansion(op, path)
	d.checkProcedure(op, path)

	for i, child := range op.Children {
		childPath := append(append([]int(nil), path...), i)
		d.walk(child, childPath)
	}
}

func (d *detector) add(kind BottleneckKind, severity int, path []int, evidence map[string]string) {
	key := string(kind) + pathKey(path)
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.bottlenecks = append(d.bottlenecks, Bottleneck{
		Kind:         kind,
		Severity:     severity,
		OperatorPath: append([]int(nil), path...),
		Evidence:     evidence,
	})
}

func pathKey(path []int) string {
	var b strings.Builder
	for _, i := range path {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// ----------------------------------------------------------------------------
// Cartesian products
// ----------------------------------------------------------------------------

// checkCartesian flags product/join operators whose children share no
// identifier, meaning no variable constrains the combination and the
// output is the full pairwise product.
func (d *detector) checkCartesian(op *PlanOperator, path []int) {
	kind := strings.ToLower(op.Kind)
	isProduct := strings.Contains(kind, "cartesianproduct") || strings.Contains(kind, "crossjoin")
	isJoin := strings.Contains(kind, "join")

	if !isProduct && !(isJoin && len(op.Children) >= 2) {
		return
	}
	if !isProduct && sharesIdentifier(op.Children) {
		return
	}

	evidence := map[string]string{"operator": op.Kind}
	for i, child := range op.Children {
		evidence[fmt.Sprintf("branch_%d_identifiers", i)] = strings.Join(child.Identifiers, ",")
	}
	d.add(KindCartesianProduct, d.cfg.CartesianSeverity, path, evidence)
}

// sharesIdentifier reports whether any identifier is bound by two or more
// children.
func sharesIdentifier(children []*PlanOperator) bool {
	counts := make(map[string]int)
	for _, child := range children {
		for _, id := range child.Identifiers {
			counts[id]++
			if counts[id] > 1 {
				return true
			}
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Missing indexes
// ----------------------------------------------------------------------------

// propertyPredicateRE extracts "ident.property" references from a filter
// expression, e.g. "p.email = $email" -> ("p", "email").
var propertyPredicateRE = regexp.MustCompile(`(\w+)\.(\w+)\s*(?:=|IN|STARTS|>|<)`)

// checkMissingIndex flags a Filter over a full label scan when the schema
// catalog knows the filtered property and marks no index for it. The scan
// reads every node of the label only to discard most of them; an index
// would serve the same lookup directly.
func (d *detector) checkMissingIndex(op *PlanOperator, path []int) {
	if d.catalog == nil {
		return
	}
	if !strings.EqualFold(op.Kind, "Filter") || len(op.Children) != 1 {
		return
	}
	scan := op.Children[0]
	if !strings.EqualFold(scan.Kind, "NodeByLabelScan") {
		return
	}

	label := scan.Arguments["label"]
	if label == "" {
		label = scan.Arguments["LabelName"]
	}
	if label == "" {
		return
	}

	details := op.Arguments["details"]
	if details == "" {
		details = op.Arguments["Details"]
	}
	for _, m := range propertyPredicateRE.FindAllStringSubmatch(details, -1) {
		property := m[2]
		if d.catalog.MissingIndex(label, property) {
			scanPath := append(append([]int(nil), path...), 0)
			d.add(KindMissingIndex, d.cfg.MissingIndexSeverity, scanPath, map[string]string{
				"label":    label,
				"property": property,
			})
		}
	}
}

// ----------------------------------------------------------------------------
// Variable-length expansions
// ----------------------------------------------------------------------------

// expansionBoundsRE parses the star bounds of a variable-length pattern,
// e.g. "*", "*1..", "*..8", "*2..6".
var expansionBoundsRE = regexp.MustCompile(`\*\s*(\d*)\s*(?:\.\.\s*(\d*))?`)

// checkExpansion flags variable-length expansions with no upper bound or a
// bound wider than the configured safe maximum.
func (d *detector) checkExpansion(op *PlanOperator, path []int) {
	if !strings.Contains(strings.ToLower(op.Kind), "varlengthexpand") {
		return
	}

	expr := op.Arguments["expandExpression"]
	if expr == "" {
		expr = op.Arguments["ExpandExpression"]
	}

	maxBound, bounded := expansionUpperBound(expr)
	if bounded && maxBound <= d.cfg.MaxExpansionDepth {
		return
	}

	evidence := map[string]string{"expression": expr}
	if bounded {
		evidence["max_bound"] = strconv.Itoa(maxBound)
	} else {
		evidence["max_bound"] = "unbounded"
	}
	evidence["safe_max"] = strconv.Itoa(d.cfg.MaxExpansionDepth)
	d.add(KindUnboundedExpansion, d.cfg.UnboundedExpansionSeverity, path, evidence)
}

// expansionUpperBound extracts the upper bound of a star expression.
// Returns bounded=false when the expression has no finite upper bound,
// including the bare "*" form and when no expression is available at all.
// An expansion operator with unknown bounds is treated as unbounded.
func expansionUpperBound(expr string) (int, bool) {
	m := expansionBoundsRE.FindStringSubmatch(expr)
	if m == nil {
		return 0, false
	}
	lo, hi := m[1], m[2]
	if hi != "" {
		n, err := strconv.Atoi(hi)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	// "*n" with no range is an exact depth; "*" and "*n.." are unbounded.
	if lo != "" && !strings.Contains(expr, "..") {
		n, err := strconv.Atoi(lo)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ----------------------------------------------------------------------------
// Unbounded result sets
// ----------------------------------------------------------------------------

// checkRoot flags a root result set above the row threshold when the plan
// carries no limiting operator anywhere.
func (d *detector) checkRoot(root *PlanOperator) {
	if d.hasLimit {
		return
	}
	rows := int64(root.EstimatedRows)
	if root.ActualRows != nil {
		rows = *root.ActualRows
	}
	if rows <= d.cfg.UnboundedRowThreshold {
		return
	}
	d.add(KindUnboundedResultSet, d.cfg.UnboundedResultSeverity, nil, map[string]string{
		"rows":      strconv.FormatInt(rows, 10),
		"threshold": strconv.FormatInt(d.cfg.UnboundedRowThreshold, 10),
	})
}

func containsLimit(op *PlanOperator) bool {
	kind := strings.ToLower(op.Kind)
	if kind == "limit" || kind == "top" {
		return true
	}
	for _, child := range op.Children {
		if containsLimit(child) {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Expensive procedures
// ----------------------------------------------------------------------------

// checkProcedure flags calls to procedures on the configured expensive
// list. List entries match as prefixes so a whole namespace can be listed.
func (d *detector) checkProcedure(op *PlanOperator, path []int) {
	if !strings.EqualFold(op.Kind, "ProcedureCall") {
		return
	}
	name := op.Arguments["name"]
	if name == "" {
		name = op.Arguments["signature"]
	}
	for _, prefix := range d.cfg.ExpensiveProcedures {
		if strings.HasPrefix(name, prefix) {
			d.add(KindExpensiveProcedure, d.cfg.ExpensiveProcSeverity, path, map[string]string{
				"procedure": name,
				"matched":   prefix,
			})
			return
		}
	}
}
