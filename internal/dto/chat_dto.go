package dto

// SendChatRequest is the body of POST /api/chat/message
type SendChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=2000"`
}

type IntentResponse struct {
	Action     string            `json:"action"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
}

type SendChatResponse struct {
	Message            string          `json:"message"`
	Intent             *IntentResponse `json:"intent,omitempty"`
	Data               interface{}     `json:"data,omitempty"`
	HasData            bool            `json:"has_data"`
	Suggestions        []string        `json:"suggestions,omitempty"`
	NeedsClarification bool            `json:"needs_clarification"`
	Stage              string          `json:"stage"`
}

// ResetChatRequest is the body of POST /api/chat/reset
type ResetChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
