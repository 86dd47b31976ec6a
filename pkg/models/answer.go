package models

// Source identifies which step of the fallback chain produced an answer.
type Source string

const (
	SourceNone        Source = ""
	SourceGeneration  Source = "generation"
	SourceCache       Source = "cache"
	SourceLocal       Source = "local"
	SourceFetchedPage Source = "fetched_page"
	SourceWebSearch   Source = "web_search"
)

// Outcome is the terminal state of a resolution.
type Outcome string

const (
	OutcomeAnswered   Outcome = "answered"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeError      Outcome = "error"
)

// User-facing texts for resolutions that produced no answer.
const (
	UnresolvedMessage    = "Üzgünüm, bu soruya yanıt bulamadım. Lütfen soruyu farklı bir şekilde sormayı deneyin."
	InternalErrorMessage = "Bir hata oluştu. Lütfen daha sonra tekrar deneyin."
)

// Answer is the result of resolving a query.
type Answer struct {
	Text       string   `json:"answer"`
	Expert     ExpertID `json:"expert_type"`
	Source     Source   `json:"source,omitempty"`
	Confidence float64  `json:"confidence"`
	Supported  bool     `json:"supported"`
	Outcome    Outcome  `json:"outcome"`
}

// Resolved reports whether a source produced the answer.
func (a Answer) Resolved() bool {
	return a.Outcome == OutcomeAnswered
}

// Unresolved builds the answer returned when every source missed.
func Unresolved(expert ExpertID, text string) Answer {
	if text == "" {
		text = UnresolvedMessage
	}
	return Answer{Text: text, Expert: expert, Outcome: OutcomeUnresolved}
}

// InternalError builds the answer returned after an unexpected failure.
func InternalError(expert ExpertID) Answer {
	return Answer{Text: InternalErrorMessage, Expert: expert, Outcome: OutcomeError}
}
