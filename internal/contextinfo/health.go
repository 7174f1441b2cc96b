package contextinfo

import (
	"fmt"
	"strings"

	"github.com/deskwise/intake/internal/health"
)

// SummarizeHealth compacts a health report for the classifier prompt. A
// fully healthy system returns the empty string: nothing worth mentioning.
func SummarizeHealth(report health.Report) string {
	var b strings.Builder
	for _, result := range report.Results {
		if result.Status == health.StatusHealthy {
			continue
		}
		if result.Detail != "" {
			fmt.Fprintf(&b, "%s: %s (%s)\n", result.Component, result.Status, result.Detail)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", result.Component, result.Status)
		}
	}
	return strings.TrimSpace(b.String())
}
