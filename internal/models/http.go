package models

// ErrorResponse is the body of every failed gateway response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is used by the upload route, whose consumers read "message".
type MessageResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// OAuthStartResponse is what the backend returns from /api/auth/{provider}.
type OAuthStartResponse struct {
	Success bool   `json:"success"`
	AuthURL string `json:"auth_url"`
	Error   string `json:"error,omitempty"`
}
