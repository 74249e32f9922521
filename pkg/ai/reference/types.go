package reference

// EntityType is the closed vocabulary of extractable entity kinds
type EntityType string

const (
	EntityContact  EntityType = "contact"
	EntityAccount  EntityType = "account"
	EntityDeal     EntityType = "deal"
	EntityActivity EntityType = "activity"
	EntityDate     EntityType = "date"
	EntityAmount   EntityType = "amount"
	EntityEmail    EntityType = "email"
	EntityPhone    EntityType = "phone"
	EntityCompany  EntityType = "company"
)

// Entity is a typed span extracted from the current message.
// Entities live for one resolution only and are never persisted.
type Entity struct {
	Type       EntityType        `json:"type"`
	Value      string            `json:"value"`
	Confidence float64           `json:"confidence"`
	Span       [2]int            `json:"span,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ReferenceType classifies how a token refers to an existing record
type ReferenceType string

const (
	ReferencePronoun   ReferenceType = "pronoun"
	ReferenceName      ReferenceType = "name"
	ReferenceAmbiguous ReferenceType = "ambiguous"
)

// Match is one candidate record for a contextual reference
type Match struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ContextualReference is an unresolved pronoun or ambiguous name.
// It resolves when exactly one candidate survives scoring; more than
// one candidate triggers a clarification turn instead.
type ContextualReference struct {
	Type            ReferenceType `json:"type"`
	Value           string        `json:"value"`
	PossibleMatches []Match       `json:"possible_matches"`
	ResolvedEntity  *Entity       `json:"resolved_entity,omitempty"`
}

// Result is the full outcome of reference resolution for one message
type Result struct {
	Entities             []Entity              `json:"entities"`
	References           []ContextualReference `json:"references"`
	NeedsClarification   bool                  `json:"needs_clarification"`
	ClarificationMessage string                `json:"clarification_message,omitempty"`
}
