package domain

// Principal is the authenticated identity attached to a request or a
// WebSocket connection. Business code only ever sees this value, never a
// token. It is passed by value and never mutated once attached.
type Principal struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// IsAdmin is a convenience for handlers guarding admin only actions.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
