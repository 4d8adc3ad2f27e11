package shared

// Roles describes how a viewer relates to an entity. A viewer can hold
// both roles, exactly one, or neither.
type Roles struct {
	IsRequester    bool `json:"is_requester"`
	IsCounterparty bool `json:"is_counterparty"`
}

// IsParty reports whether the viewer holds at least one role
func (r Roles) IsParty() bool {
	return r.IsRequester || r.IsCounterparty
}

// ResolveRoles compares the viewer id against both party ids.
// An empty viewer id never matches anything.
func ResolveRoles(viewerID, requesterID, counterpartyID string) Roles {
	if viewerID == "" {
		return Roles{}
	}
	return Roles{
		IsRequester:    viewerID == requesterID,
		IsCounterparty: viewerID == counterpartyID,
	}
}
