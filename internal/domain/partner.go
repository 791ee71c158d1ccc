package domain

// Partner is the authenticated vehicle owner using the console.
type Partner struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
