package report

import (
	"strings"

	types "github.com/casaluz/incidents-backend/internal/domain"
)

// Display lookup for item dispositions. Unknown values pass through
// unchanged rather than failing the document.
var dispositionLabels = map[string]string{
	types.DispositionReturned:  "Rejected and Returned",
	types.DispositionDiscarded: "Rejected and Discarded",
}

func DispositionLabel(disposition string) string {
	if label, ok := dispositionLabels[disposition]; ok {
		return label
	}
	return disposition
}

// QuantitySummary joins the unit labels of the quantity flags that are
// set. All flags clear renders as "unspecified".
func QuantitySummary(item *types.IncidentItem) string {
	var parts []string
	if item.QtyArea {
		parts = append(parts, "m²")
	}
	if item.QtyBoxes {
		parts = append(parts, "boxes")
	}
	if item.QtyUnits {
		parts = append(parts, "units")
	}
	if len(parts) == 0 {
		return "unspecified"
	}
	return strings.Join(parts, ", ")
}

// DefectSummary joins the labels of the defect flags that are set. All
// flags clear returns "", and the caller omits the line entirely.
func DefectSummary(item *types.IncidentItem) string {
	var parts []string
	if item.Breakage {
		parts = append(parts, "breakage")
	}
	if item.Chipping {
		parts = append(parts, "chipping")
	}
	if item.ImpactDamage {
		parts = append(parts, "impact damage")
	}
	if item.Scratching {
		parts = append(parts, "scratching")
	}
	if item.Incomplete {
		parts = append(parts, "incomplete")
	}
	if item.MixedLot {
		parts = append(parts, "mixed lot")
	}
	if item.OtherDefect {
		parts = append(parts, "other")
	}
	return strings.Join(parts, ", ")
}
