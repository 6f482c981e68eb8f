package auth

// UserContext is the identity extracted from a verified bearer token.
type UserContext struct {
	ID       string // token subject
	Username string
	Email    string
	Name     string
	Roles    []string
}

// HasRole reports whether the user holds the given realm role.
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
