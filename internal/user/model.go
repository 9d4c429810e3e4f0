package user

import "time"

const RoleAdmin = "admin"

type User struct {
	Email     string
	Role      string
	Profile   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UpsertResult struct {
	Email   string
	Created bool
}
