package models

// Session is the authenticated identity of the waiter client.
type Session struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Token  string `json:"token"`
}

func (s Session) IsZero() bool {
	return s.UserID == 0
}

// CanWait reports whether the role may use the waiter client.
func (s Session) CanWait() bool {
	return s.Role == RoleWaiter || s.Role == RoleAdmin
}
