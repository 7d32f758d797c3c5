package pricing

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/tbxark/estimagent/types"
)

const (
	ClosingMessage  = "Thank you for using our estimation service! Is there anything else you'd like to know about this estimate?"
	preliminaryNote = "*Note: This is a preliminary estimate and may change based on final inspection.*"
)

func Currency(amount float64) string {
	if amount < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -amount)
	}
	return "$" + humanize.FormatFloat("#,###.##", amount)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Summary renders est as markdown for the conversation history.
func Summary(est *types.EstimateResult) string {
	if est == nil {
		return "Unable to generate an estimate with the provided information."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Estimate for %s Service\n\n", title(est.Service))
	sb.WriteString("## Project Details:\n")
	fmt.Fprintf(&sb, "- **Square Footage**: %s sq ft\n", est.Facts.Get(types.FieldArea))
	fmt.Fprintf(&sb, "- **Location**: %s\n", title(est.Facts.Get(types.FieldRegion)))
	fmt.Fprintf(&sb, "- **Material**: %s\n", title(est.Facts.Get(types.FieldMaterial)))
	fmt.Fprintf(&sb, "- **Timeline**: %s\n", title(est.Facts.Get(types.FieldTimeline)))
	if len(est.Images) > 0 {
		fmt.Fprintf(&sb, "- **Images Provided**: %d\n", len(est.Images))
	}

	sb.WriteString("\n## Cost Breakdown:\n")
	table := tablewriter.NewTable(&sb, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Item", "Amount")
	_ = table.Append("Base Cost", Currency(est.BaseCost))
	_ = table.Append("Material Cost", Currency(est.MaterialCost))
	_ = table.Append("Regional Adjustment", Currency(est.RegionAdjustment))
	_ = table.Append("Timeline Adjustment", Currency(est.TimelineAdjustment))
	_ = table.Append("Permit Fee", Currency(est.FixedFee))
	_ = table.Render()

	fmt.Fprintf(&sb, "\n## Total Estimate: %s\n", Currency(est.Total))
	fmt.Fprintf(&sb, "## Price Range: %s - %s\n\n", Currency(est.Low), Currency(est.High))
	sb.WriteString(preliminaryNote)
	return sb.String()
}
