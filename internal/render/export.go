package render

import (
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
)

// Export payloads mirror the report types with full precision and no
// width clamp. Bodies carry no timestamps so repeated exports of the
// same run stay byte-identical.

// ExportReport serializes one fit report.
func ExportReport(r *domain.FitReport) ([]byte, error) {
	return marshalExport(r)
}

// ExportComparison serializes one customer's shelf comparison.
func ExportComparison(c *domain.Comparison) ([]byte, error) {
	return marshalExport(c)
}

// ExportPortfolio serializes a full portfolio summary.
func ExportPortfolio(s *domain.PortfolioSummary) ([]byte, error) {
	return marshalExport(s)
}

func marshalExport(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export payload: %w", err)
	}
	return append(data, '\n'), nil
}
