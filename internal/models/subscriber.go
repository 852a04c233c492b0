package models

// Subscriber is a newsletter subscription as acknowledged by the API.
type Subscriber struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
