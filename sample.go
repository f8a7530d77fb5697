package thrift

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRowPercentage parses a sampling fraction. Valid values are in (0, 1].
func ParseRowPercentage(s string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRowPercentage, s)
	}
	return validateRowPercentage(p)
}

func validateRowPercentage(p float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRowPercentage, p)
	}
	return p, nil
}

// formatFraction renders a validated fraction for embedding in SQL. Only
// values that passed validateRowPercentage reach here, so the text is a plain
// decimal number.
func formatFraction(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// sampleClause renders the ORDER BY/LIMIT suffix for the assembler path.
// Rows are shuffled with random() and limited to p times the row count of
// population, the same query without sampling.
func sampleClause(p float64, population string) string {
	return fmt.Sprintf(" order by random() limit (select %s from (%s) as population)", sampleLimitExpr(p), population)
}

// sampleLimitExpr is the row-count bound shared by both sampling paths.
func sampleLimitExpr(p float64) string {
	return fmt.Sprintf("cast(count(*) * %s as bigint)", formatFraction(p))
}
