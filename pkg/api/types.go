package api

import "time"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Markets   []ClassStatus `json:"markets"`
}

// ClassStatus reports the ingestion position for one asset class.
type ClassStatus struct {
	Class     string `json:"class"`
	Contract  string `json:"contract"`
	NextBlock uint64 `json:"next_block"`
	Healthy   bool   `json:"healthy"`
}

// ClassInfo describes one available marketplace and its endpoints.
type ClassInfo struct {
	Class     string   `json:"class"`
	Contract  string   `json:"contract"`
	Endpoints []string `json:"endpoints"`
}

// DeleteResponse reports how many orders a destructive call touched.
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}
