package quote

// Party identifies which side of the negotiation authored a history event
type Party string

const (
	// PartyNone means the history is empty
	PartyNone      Party = "NONE"
	PartyRequester Party = "REQUESTER"
	PartySupplier  Party = "SUPPLIER"
	// PartyUnknown means the last event was authored by someone who is neither party
	PartyUnknown Party = "UNKNOWN"
)

// Turn tells which role may act next
type Turn struct {
	RequesterMayAct bool  `json:"requester_may_act"`
	SupplierMayAct  bool  `json:"supplier_may_act"`
	LastAuthor      Party `json:"last_author"`
}

// ResolveTurn applies the turn-taking rule: the role that did not author the
// last history event may act. With no history only the supplier may act,
// since suppliers open the negotiation by sending a quote. An event authored
// by an unknown user leaves nobody able to act.
func ResolveTurn(history []OfferEvent, requesterID, supplierID string) Turn {
	if len(history) == 0 {
		return Turn{SupplierMayAct: true, LastAuthor: PartyNone}
	}

	author := history[len(history)-1].ActorID
	switch {
	case author != "" && author == requesterID:
		return Turn{SupplierMayAct: true, LastAuthor: PartyRequester}
	case author != "" && author == supplierID:
		return Turn{RequesterMayAct: true, LastAuthor: PartySupplier}
	default:
		return Turn{LastAuthor: PartyUnknown}
	}
}
