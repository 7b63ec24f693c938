package reporting

import (
	"fmt"
	"strings"

	"sales-forecast-lab/internal/domain"
)

// RenderMarkdown renders the output of a run as Markdown string.
func RenderMarkdown(out domain.Output) string {
	if !out.OK() {
		return renderFailureMarkdown(out.Failure)
	}
	r := out.Result
	var sb strings.Builder

	sb.WriteString("# Sales Forecast Report\n\n")

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Sales | %d |\n", r.Summary.Total.IntPart()))
	sb.WriteString(fmt.Sprintf("| Average Sales | %d |\n", r.Summary.Mean.IntPart()))
	sb.WriteString(fmt.Sprintf("| Max Sales | %d |\n", r.Summary.Max.IntPart()))
	sb.WriteString(fmt.Sprintf("| Min Sales | %d |\n", r.Summary.Min.IntPart()))
	sb.WriteString(fmt.Sprintf("| Records | %d |\n", r.Summary.RecordCount))
	sb.WriteString(fmt.Sprintf("| Training Days | %d |\n", len(r.Series)))
	sb.WriteString(fmt.Sprintf("| Outliers | %d |\n", r.Summary.OutlierCount))
	sb.WriteString("\n")

	// Forecast
	sb.WriteString("## Forecast\n\n")
	if len(r.Forecast) > 0 {
		sb.WriteString("| Date | Predicted |\n")
		sb.WriteString("|------|-----------|\n")
		for _, p := range r.Forecast {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", p.Date.Format(domain.DateLayout), p.Predicted))
		}
	} else {
		sb.WriteString("No forecast available.\n")
	}
	sb.WriteString("\n")

	// Outliers
	sb.WriteString("## Outliers\n\n")
	if len(r.Outliers) > 0 {
		sb.WriteString("| Date | Amount | Source |\n")
		sb.WriteString("|------|--------|--------|\n")
		for _, o := range r.Outliers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", o.DateKey(), o.Amount.String(), o.Source))
		}
	} else {
		sb.WriteString("No outliers detected.\n")
	}
	sb.WriteString("\n")

	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	if len(r.FileErrors) > 0 {
		sb.WriteString("## File Errors\n\n")
		writeFileErrors(&sb, r.FileErrors)
	}

	return sb.String()
}

func renderFailureMarkdown(f *domain.Failure) string {
	var sb strings.Builder

	sb.WriteString("# Analysis Failed\n\n")
	sb.WriteString(fmt.Sprintf("**%s**: %s\n\n", f.Kind, f.Message))
	if len(f.Details) > 0 {
		writeFileErrors(&sb, f.Details)
	}

	return sb.String()
}

func writeFileErrors(sb *strings.Builder, errs []domain.FileError) {
	sb.WriteString("| File | Kind | Message |\n")
	sb.WriteString("|------|------|---------|\n")
	for _, e := range errs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", e.Filename, e.Kind, strings.ReplaceAll(e.Message, "|", "\\|")))
	}
	sb.WriteString("\n")
}
