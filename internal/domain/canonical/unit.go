package canonical

import (
	"regexp"
	"strings"
)

// unitWords are applied in order. Millisecond must run before Second and
// Percent before the Per rule below.
var unitWords = []struct{ long, short string }{
	{"Centimeter", "cm"},
	{"Millimeter", "mm"},
	{"Meter", "m"},
	{"Inch", "in"},
	{"Newton", "N"},
	{"Watt", "W"},
	{"Kilo", "kg"},
	{"Pound", "lb"},
	{"Millisecond", "ms"},
	{"Second", "s"},
	{"Percent", "percent"},
}

var (
	perWord    = regexp.MustCompile(`\s*Per\s*`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeUnit shortens a vendor unit label into a field-name token.
// "Newton Per Second" becomes "N_per_s", "No Unit" becomes "No_Unit".
func NormalizeUnit(unit string) string {
	u := strings.TrimSpace(unit)
	for _, w := range unitWords {
		u = strings.ReplaceAll(u, w.long, w.short)
	}
	u = perWord.ReplaceAllString(u, "_per_")
	return whitespace.ReplaceAllString(u, "_")
}

// FieldName builds the canonical RESULT_NAME_Limb[_Unit] name of one row.
// An empty limb reads as "Trial".
func FieldName(resultName, limb, unit string) string {
	if limb == "" {
		limb = "Trial"
	}
	name := resultName + "_" + limb
	if unit != "" {
		name += "_" + NormalizeUnit(unit)
	}
	return name
}
