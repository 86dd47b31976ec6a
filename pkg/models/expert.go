package models

// ExpertID identifies a domain expert.
type ExpertID string

const (
	ExpertSports   ExpertID = "sports"
	ExpertFood     ExpertID = "food"
	ExpertAI       ExpertID = "ai"
	ExpertSudostar ExpertID = "sudostar"
	ExpertGeneral  ExpertID = "general"
	// ExpertNone means no specialized pipeline applies.
	ExpertNone ExpertID = "none"
)

// Experts lists the routable experts in classification order.
var Experts = []ExpertID{ExpertSports, ExpertFood, ExpertAI, ExpertSudostar, ExpertGeneral}

// ParseExpertID returns the ExpertID for s. It accepts every routable expert and "none".
func ParseExpertID(s string) (ExpertID, bool) {
	id := ExpertID(s)
	if id == ExpertNone {
		return id, true
	}
	for _, e := range Experts {
		if e == id {
			return id, true
		}
	}
	return "", false
}

func (id ExpertID) String() string { return string(id) }
