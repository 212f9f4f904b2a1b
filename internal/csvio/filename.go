package csvio

import "fmt"

const appName = "kakeibo"

// AllTime is the period token for exports spanning the full history.
const AllTime = "all"

// ExportFilename builds the download name for an export:
// <app>-<scope>-<period>.csv, e.g. kakeibo-transactions-2024-01.csv or
// kakeibo-budgets-all.csv.
func ExportFilename(scope, period string) string {
	if period == "" {
		period = AllTime
	}
	return fmt.Sprintf("%s-%s-%s.csv", appName, scope, period)
}
