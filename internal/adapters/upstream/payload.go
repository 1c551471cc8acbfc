package upstream

import (
	"time"

	"github.com/okian/platehub/internal/domain/model"
)

type groupsPayload struct {
	Groups []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"groups"`
}

type profilesPayload struct {
	Profiles []struct {
		ProfileID  string   `json:"profileId"`
		GivenName  string   `json:"givenName"`
		FamilyName string   `json:"familyName"`
		Tags       []string `json:"tags"`
		GroupIDs   []string `json:"groupIds"`
	} `json:"profiles"`
}

type testsPayload struct {
	Tests []struct {
		TestID          string    `json:"testId"`
		ProfileID       string    `json:"profileId"`
		TestType        string    `json:"testType"`
		RecordedDateUTC time.Time `json:"recordedDateUtc"`
	} `json:"tests"`
}

type trialPayload struct {
	ID      string `json:"id"`
	Limb    string `json:"limb"`
	Results []struct {
		Value      *float64 `json:"value"`
		Limb       string   `json:"limb"`
		Definition struct {
			Result string `json:"result"`
			Unit   string `json:"unit"`
		} `json:"definition"`
	} `json:"results"`
}

func (p groupsPayload) groups() []model.Group {
	out := make([]model.Group, 0, len(p.Groups))
	for _, g := range p.Groups {
		out = append(out, model.Group{ID: g.ID, Name: g.Name})
	}
	return out
}

func (p profilesPayload) profiles() []model.Profile {
	out := make([]model.Profile, 0, len(p.Profiles))
	for _, pr := range p.Profiles {
		out = append(out, model.Profile{
			ID:         pr.ProfileID,
			GivenName:  pr.GivenName,
			FamilyName: pr.FamilyName,
			Tags:       pr.Tags,
			GroupIDs:   pr.GroupIDs,
		})
	}
	return out
}

// summaries tags every test with tenant, the source the vendor never echoes.
func (p testsPayload) summaries(tenant model.Tenant) []model.TestSummary {
	out := make([]model.TestSummary, 0, len(p.Tests))
	for _, t := range p.Tests {
		out = append(out, model.TestSummary{
			Tenant:     tenant,
			TestID:     t.TestID,
			ProfileID:  t.ProfileID,
			TestType:   t.TestType,
			RecordedAt: t.RecordedDateUTC,
		})
	}
	return out
}

func trialsFromPayload(in []trialPayload) []model.Trial {
	out := make([]model.Trial, 0, len(in))
	for _, tp := range in {
		trial := model.Trial{ID: tp.ID, Limb: tp.Limb, Results: make([]model.TrialResult, 0, len(tp.Results))}
		for _, r := range tp.Results {
			trial.Results = append(trial.Results, model.TrialResult{
				Limb:       r.Limb,
				ResultName: r.Definition.Result,
				Unit:       r.Definition.Unit,
				Value:      r.Value,
			})
		}
		out = append(out, trial)
	}
	return out
}
