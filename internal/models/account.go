// internal/models/account.go
package models

// User is the authenticated caller as reported by the identity provider.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles,omitempty"`
}

// IsStaff reports whether the user holds any of the given roles.
func (u User) IsStaff(staffRoles []string) bool {
	for _, have := range u.Roles {
		for _, want := range staffRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}
