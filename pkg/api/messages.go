package api

type (
	// HealthResponse provides service health information
	HealthResponse struct {
		Service     string `json:"service"`
		Version     string `json:"version"`
		Status      string `json:"status"`
		Subscribers int    `json:"subscribers"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}

	// SubscribeRequest is sent by websocket clients to change which events
	// they receive
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription narrows a websocket stream to one run and,
	// optionally, to specific event types. An empty RunID matches every run
	ClientSubscription struct {
		RunID      RunID       `json:"run_id,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}

	// SubscribedResult acknowledges a subscription change
	SubscribedResult struct {
		Type  string `json:"type"`
		RunID RunID  `json:"run_id,omitempty"`
	}
)

const (
	HealthHealthy = "healthy"

	MessageSubscribe  = "subscribe"
	MessageSubscribed = "subscribed"
)
