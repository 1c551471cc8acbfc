package model

// ProfileReference identifies one vendor-side athlete record.
type ProfileReference struct {
	Tenant    Tenant `json:"tenant"`
	ProfileID string `json:"profileId"`
}

// Key returns a stable identity for the reference, unique across tenants.
func (r ProfileReference) Key() string {
	return string(r.Tenant) + ":" + r.ProfileID
}

// Group is a vendor group (team, roster) a profile belongs to.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile is a vendor athlete record as returned by one tenant.
type Profile struct {
	ID         string
	GivenName  string
	FamilyName string
	Tags       []string
	GroupIDs   []string
}

// FullName joins given and family name with a single space.
func (p Profile) FullName() string {
	switch {
	case p.GivenName == "":
		return p.FamilyName
	case p.FamilyName == "":
		return p.GivenName
	}
	return p.GivenName + " " + p.FamilyName
}

// Athlete is one person, possibly known to both tenants.
type Athlete struct {
	CanonicalKey      string             `json:"canonicalKey"`
	DisplayName       string             `json:"displayName"`
	FirstName         string             `json:"firstName"`
	LastName          string             `json:"lastName"`
	ProfileReferences []ProfileReference `json:"profileReferences"`
	Groups            []Group            `json:"groups"`
}
