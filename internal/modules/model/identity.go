package model

// Identity is the authenticated team member behind a request, as asserted by
// the external auth provider's token.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Token   string `json:"-"`
}

// Attribution is the value stored in created_by.
func (i *Identity) Attribution() string {
	if i == nil {
		return ""
	}
	if i.Email != "" {
		return i.Email
	}
	return i.Subject
}
