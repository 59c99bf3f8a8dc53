package dto

// QuotaStatusResponseDTO is the state of one daily quota.
type QuotaStatusResponseDTO struct {
	Kind      string `json:"kind"`
	Allowed   bool   `json:"allowed"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Day       string `json:"day"`
	PlanID    string `json:"plan_id"`
	PlanName  string `json:"plan_name"`
	// Recorded is only meaningful on increment responses.
	Recorded *bool `json:"recorded,omitempty"`
}

// QuotaSummaryResponseDTO is returned by GET /quota
type QuotaSummaryResponseDTO struct {
	Day   string                 `json:"day"`
	Quiz  QuotaStatusResponseDTO `json:"quiz"`
	Topic QuotaStatusResponseDTO `json:"topic"`
}

// LimitExceededResponseDTO is the 429 body.
type LimitExceededResponseDTO struct {
	Error string                 `json:"error"`
	Quota QuotaStatusResponseDTO `json:"quota"`
}

// ErrorResponseDTO is the body of every other error response.
type ErrorResponseDTO struct {
	Error string `json:"error"`
}

// TopicAccessResponseDTO is returned when a topic view is granted.
type TopicAccessResponseDTO struct {
	TopicID string                 `json:"topic_id"`
	Quota   QuotaStatusResponseDTO `json:"quota"`
}
