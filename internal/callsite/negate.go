package callsite

import "strings"

// negationPairs is ordered: the first operator present in the expression wins.
var negationPairs = []struct {
	op  string
	neg string
}{
	{"==", "!="},
	{"!=", "=="},
	{"<=", ">"},
	{">=", "<"},
	{"<", ">="},
	{">", "<="},
}

// Negate returns the textual negation of a guard expression.
//
// A comparison operator is swapped with its complement, a leading '!' is
// removed, and anything else is wrapped as !(expr). This is a textual rule,
// not boolean algebra: "a < b && c" becomes "a >= b && c".
func Negate(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return expr
	}
	for _, pair := range negationPairs {
		if idx := findOperator(expr, pair.op); idx >= 0 {
			return expr[:idx] + pair.neg + expr[idx+len(pair.op):]
		}
	}
	if strings.HasPrefix(expr, "!") && !strings.HasPrefix(expr, "!=") {
		return strings.TrimSpace(expr[1:])
	}
	return "!(" + expr + ")"
}

// findOperator returns the first offset of op in expr that is a comparison,
// skipping '->', shifts and compound assignments.
func findOperator(expr, op string) int {
	for from := 0; from < len(expr); {
		rel := strings.Index(expr[from:], op)
		if rel < 0 {
			return -1
		}
		idx := from + rel
		if isComparison(expr, idx, op) {
			return idx
		}
		from = idx + 1
	}
	return -1
}

func isComparison(expr string, idx int, op string) bool {
	var prev, next byte
	if idx > 0 {
		prev = expr[idx-1]
	}
	if end := idx + len(op); end < len(expr) {
		next = expr[end]
	}
	switch op {
	case "==":
		return prev != '=' && prev != '!' && prev != '<' && prev != '>' && next != '='
	case "!=":
		return next != '='
	case "<=":
		return prev != '<'
	case ">=":
		return prev != '>'
	case "<":
		return prev != '<' && next != '<' && next != '='
	case ">":
		return prev != '>' && prev != '-' && next != '>' && next != '='
	}
	return true
}
