package reporting

import (
	"fmt"
	"strings"

	"sales-forecast-lab/internal/domain"
)

// RenderForecastCSV renders forecast points as CSV string.
func RenderForecastCSV(points []domain.ForecastPoint) string {
	var sb strings.Builder

	sb.WriteString("date,predicted\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%d\n", p.Date.Format(domain.DateLayout), p.Predicted))
	}

	return sb.String()
}

// RenderSeriesCSV renders the daily training series as CSV string.
func RenderSeriesCSV(series domain.Series) string {
	var sb strings.Builder

	sb.WriteString("date,amount,records\n")
	for _, p := range series {
		sb.WriteString(fmt.Sprintf("%s,%s,%d\n", p.Date.Format(domain.DateLayout), p.Amount.String(), p.RecordCount))
	}

	return sb.String()
}
