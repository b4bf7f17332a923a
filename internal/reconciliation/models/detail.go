package models

// DivergenceDetail is one audit row: a divergent target record, or an HR
// identity missing from a target system.
type DivergenceDetail struct {
	System      string   `json:"system"`
	IdentityID  string   `json:"identityId"`
	Name        string   `json:"name,omitempty"`
	Divergences []string `json:"divergences"`
	Dormant     bool     `json:"dormant"`
	Privileged  bool     `json:"privileged"`
}

// DivergenceReport lists the detail rows for one scope.
type DivergenceReport struct {
	Scope      string             `json:"scope"`
	Generation int64              `json:"generation"`
	Rows       []DivergenceDetail `json:"rows"`
}
