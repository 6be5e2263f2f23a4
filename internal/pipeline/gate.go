package pipeline

import "github.com/urbeneye/leadsync/internal/model"

// GateResult explains an actionability decision.
type GateResult struct {
	Accepted bool
	Reason   string
}

// Gate is the single authorization point between extraction and any
// external write. A lead passes when it carries at least one contact
// signal; everything else about the lead may be empty.
func Gate(lead model.Lead) GateResult {
	switch {
	case lead.CustomerEmail != "" && lead.CustomerPhone != "":
		return GateResult{Accepted: true, Reason: "email and phone"}
	case lead.CustomerEmail != "":
		return GateResult{Accepted: true, Reason: "email"}
	case lead.CustomerPhone != "":
		return GateResult{Accepted: true, Reason: "phone"}
	default:
		return GateResult{Accepted: false, Reason: "no contact signal"}
	}
}
