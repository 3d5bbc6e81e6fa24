package models

import "time"

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error     ErrorBody        `json:"error"`
	Candidate *ParsedCandidate `json:"candidate,omitempty"`
}

type ParseResponse struct {
	RequestID string           `json:"request_id"`
	FileName  string           `json:"file_name"`
	Candidate *ParsedCandidate `json:"candidate"`
}

type AdapterStatus struct {
	Name          string     `json:"name"`
	Priority      int        `json:"priority"`
	Enabled       bool       `json:"enabled"`
	MediaTypes    []string   `json:"media_types"`
	Breaker       string     `json:"breaker"`
	Failures      int        `json:"consecutive_failures"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

type AdaptersResponse struct {
	Adapters []AdapterStatus `json:"adapters"`
}
