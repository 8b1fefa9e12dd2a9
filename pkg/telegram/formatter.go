package telegram

import (
	"fmt"
	"strings"
)

// ValidationSummary carries the figures reported after a validation run.
type ValidationSummary struct {
	ValidatedCount  int
	AccurateCount   int
	PartialCount    int
	InaccurateCount int
	FailedCount     int
}

// FormatValidationSummary renders a validation run result as a Telegram message.
func FormatValidationSummary(s ValidationSummary) string {
	var b strings.Builder
	b.WriteString("*Daily Recommendation Validation*\n\n")
	b.WriteString(fmt.Sprintf("Validated: *%d*\n", s.ValidatedCount))
	b.WriteString(fmt.Sprintf("  Accurate: %d\n", s.AccurateCount))
	b.WriteString(fmt.Sprintf("  Partially accurate: %d\n", s.PartialCount))
	b.WriteString(fmt.Sprintf("  Inaccurate: %d\n", s.InaccurateCount))
	if s.FailedCount > 0 {
		b.WriteString(fmt.Sprintf("\nFailed to validate: %d (left pending)\n", s.FailedCount))
	}
	return b.String()
}
