package models

// role names
const (
	RoleAdmin = "admin"
)

// TokenPayload is the authenticated actor extracted from an auth token
type TokenPayload struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the payload carries role
func (p *TokenPayload) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
