package canonical

// Alias names the field downstream consumers read and the historical vendor
// spellings it may be found under, most preferred first.
type Alias struct {
	Target     string
	Candidates []string
}

// DefaultAliases is the alias table applied by Canonicalize.
var DefaultAliases = []Alias{
	{
		Target: "FLIGHT_CONTRACTION_TIME_RATIO_Trial_",
		Candidates: []string{
			"FLIGHT_CONTRACTION_TIME_RATIO_Trial_No_Unit",
			"FLIGHT_CONTRACTION_TIME_RATIO_Trial",
		},
	},
	{
		Target: "RSI_MODIFIED_Trial_RSI_mod",
		Candidates: []string{
			"RSI_MODIFIED_Trial_m_per_s",
			"RSI_MODIFIED_Trial_No_Unit",
			"RSI_MODIFIED_Trial",
			"RSI_MODIFIED_IMP_MOM_Trial_RSI_mod",
		},
	},
	{
		Target: "CONCENTRIC_IMPULSE_Trial_Ns",
		Candidates: []string{
			"CONCENTRIC_IMPULSE_Trial_N_s",
			"CONCENTRIC_IMPULSE_Trial_s_N",
		},
	},
	{
		Target: "ECCENTRIC_BRAKING_RFD_Trial_N_per_s",
		Candidates: []string{
			"ECCENTRIC_BRAKING_RFD_-100_Trial_N_per_s",
			"ECCENTRIC_BRAKING_RFD_Trial_N_s",
		},
	},
	{
		Target: "PEAK_TAKEOFF_POWER_BM_Trial_W_per_kg",
		Candidates: []string{
			"BODYMASS_RELATIVE_TAKEOFF_POWER_Trial_W_per_kg",
			"PEAK_TAKEOFF_POWER_Trial_W_per_kg",
		},
	},
}

// resolve copies the first present candidate of each alias to its target.
// A target that already holds a raw value is left alone, and nothing is ever
// removed. It returns the targets that were filled.
func resolve(values map[string]float64, aliases []Alias) []string {
	var filled []string
	for _, a := range aliases {
		if _, ok := values[a.Target]; ok {
			continue
		}
		for _, c := range a.Candidates {
			if v, ok := values[c]; ok {
				values[a.Target] = v
				filled = append(filled, a.Target)
				break
			}
		}
	}
	return filled
}
