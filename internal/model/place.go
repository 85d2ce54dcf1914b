package model

type Connection struct {
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

type Place struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        string       `json:"type"`
	City        string       `json:"city,omitempty"`
	Region      string       `json:"region,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Description string       `json:"description,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
}

// Location prefers the city and falls back to the region for
// entries that only carry a coarse area.
func (p *Place) Location() string {
	if p.City != "" {
		return p.City
	}
	return p.Region
}
