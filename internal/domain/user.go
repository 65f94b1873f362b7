package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the caller of an operation. A nil *Actor is a guest.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

func (a *Actor) UserID() string {
	if a == nil || a.ID == "" {
		return GuestUserID
	}
	return a.ID
}

func (a *Actor) EmailAddress() string {
	if a == nil || a.Email == "" {
		return GuestEmail
	}
	return a.Email
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
