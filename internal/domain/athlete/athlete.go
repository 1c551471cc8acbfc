// Package athlete merges vendor profiles from several tenants into athletes.
// Identity is the whitespace-normalized, lower-cased full name; no fuzzy
// matching is attempted.
package athlete

import (
	"strings"

	"github.com/okian/platehub/internal/domain/model"
)

// DefaultProfessionalGroups are the group name fragments searched when no
// other list is configured. Matching is a case-insensitive substring test.
var DefaultProfessionalGroups = []string{
	"MiLB/MLB", "Pro", "MLB", "MiLB", "Professional", "Major", "MLB/ MiLB", "Pro Baseball",
}

// Normalize lower-cases name, trims it and collapses inner whitespace runs
// to single spaces. "  John   SMITH " becomes "john smith".
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Candidate is one profile found in one tenant, with the groups it was found in.
type Candidate struct {
	Tenant  model.Tenant
	Profile model.Profile
	Groups  []model.Group
}

// Table accumulates candidates keyed by canonical name. It is not safe for
// concurrent use; feed it from a single goroutine in a deterministic order.
type Table struct {
	order []string
	byKey map[string]*entry
}

type entry struct {
	athlete model.Athlete
	refs    map[string]struct{}
	groups  map[string]struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byKey: make(map[string]*entry)}
}

// Add merges c into the table and returns its canonical key. Candidates with
// an empty name are ignored and yield "".
func (t *Table) Add(c Candidate) string {
	key := Normalize(c.Profile.FullName())
	if key == "" {
		return ""
	}

	e, ok := t.byKey[key]
	if !ok {
		e = &entry{
			athlete: model.Athlete{
				CanonicalKey: key,
				DisplayName:  strings.Join(strings.Fields(c.Profile.FullName()), " "),
				FirstName:    strings.TrimSpace(c.Profile.GivenName),
				LastName:     strings.TrimSpace(c.Profile.FamilyName),
			},
			refs:   make(map[string]struct{}),
			groups: make(map[string]struct{}),
		}
		t.byKey[key] = e
		t.order = append(t.order, key)
	}

	ref := model.ProfileReference{Tenant: c.Tenant, ProfileID: c.Profile.ID}
	if _, seen := e.refs[ref.Key()]; !seen {
		e.refs[ref.Key()] = struct{}{}
		e.athlete.ProfileReferences = append(e.athlete.ProfileReferences, ref)
	}
	for _, g := range c.Groups {
		if _, seen := e.groups[g.ID]; seen {
			continue
		}
		e.groups[g.ID] = struct{}{}
		e.athlete.Groups = append(e.athlete.Groups, g)
	}
	return key
}

// Len returns the number of distinct athletes.
func (t *Table) Len() int { return len(t.order) }

// Athletes returns the merged athletes in first-seen order.
func (t *Table) Athletes() []model.Athlete {
	out := make([]model.Athlete, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, clone(t.byKey[k].athlete))
	}
	return out
}

// Search returns the athletes whose canonical key, first name or last name
// contains the lower-cased term. The term is not trimmed or collapsed, so
// "jane  doe" does not match "jane doe". An empty term matches everyone.
func (t *Table) Search(term string) []model.Athlete {
	if term == "" {
		return t.Athletes()
	}
	needle := strings.ToLower(term)
	var out []model.Athlete
	for _, k := range t.order {
		a := t.byKey[k].athlete
		if strings.Contains(a.CanonicalKey, needle) ||
			strings.Contains(strings.ToLower(a.FirstName), needle) ||
			strings.Contains(strings.ToLower(a.LastName), needle) {
			out = append(out, clone(a))
		}
	}
	return out
}

func clone(a model.Athlete) model.Athlete {
	a.ProfileReferences = append([]model.ProfileReference(nil), a.ProfileReferences...)
	a.Groups = append([]model.Group(nil), a.Groups...)
	return a
}
