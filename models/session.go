package models

// Session is the authenticated principal. It exists from sign-in until
// sign-out or token invalidation; without one, every store operation is
// rejected before reaching the network.
type Session struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}
