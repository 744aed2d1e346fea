package domain

type UserRole string

const (
	UserRoleAdmin  UserRole = "ADMIN"
	UserRoleMember UserRole = "MEMBER"
)

// User is a portal member as returned by the user directory.
type User struct {
	ID    int32    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

// DisplayName falls back to the email and then to "Unknown" when the name is blank.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown"
}

// ContactEmail returns the email or "Unknown".
func (u *User) ContactEmail() string {
	if u == nil || u.Email == "" {
		return "Unknown"
	}
	return u.Email
}
