package percentile

import "sort"

// NotAvailable is shown for values and ratings that cannot be computed.
const NotAvailable = "N/A"

// Band labels every percentile at or above Min.
type Band struct {
	Min   float64
	Label string
}

// Bands is a rating table. Rate picks the highest band the percentile reaches.
type Bands []Band

// StandardBands is the five-level rating used for most metric families.
var StandardBands = Bands{
	{Min: 90, Label: "Elite"},
	{Min: 75, Label: "Above Average"},
	{Min: 50, Label: "Average"},
	{Min: 25, Label: "Below Average"},
	{Min: 0, Label: "Needs Improvement"},
}

// WideBands widens Average down to the 25th percentile.
var WideBands = Bands{
	{Min: 90, Label: "Elite"},
	{Min: 75, Label: "Above Average"},
	{Min: 25, Label: "Average"},
	{Min: 0, Label: "Below Average"},
}

// Rate returns the label for percentile, or NotAvailable for nil.
func (b Bands) Rate(percentile *float64) string {
	if percentile == nil || len(b) == 0 {
		return NotAvailable
	}
	sorted := append(Bands(nil), b...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	for _, band := range sorted {
		if *percentile >= band.Min {
			return band.Label
		}
	}
	return sorted[len(sorted)-1].Label
}
