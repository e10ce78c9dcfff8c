package user

import (
	"errors"
	"strings"
	"time"

	"movebooking/internal/validate"
	"movebooking/pkg/identity"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrSelfRole = errors.New("cannot change own role")
)

var roles = []string{identity.RoleCustomer, identity.RoleAdmin}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Me is the session merged with the stored profile. Role comes from the
// profile; TokenRole is what the access token claimed.
type Me struct {
	Profile
	TokenRole        string    `json:"token_role"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	IdentitySynced   *bool     `json:"identity_synced,omitempty"`
}

func NewMe(s *identity.Session, p *Profile) Me {
	return Me{Profile: *p, TokenRole: s.Role, SessionExpiresAt: s.ExpiresAt}
}

type UpdateRequest struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

// Normalize trims each provided field. An empty string clears the value.
func (r UpdateRequest) Normalize() (UpdateRequest, error) {
	if r.FullName == nil && r.Phone == nil && r.AvatarURL == nil {
		return r, validate.Failed("no fields to update")
	}
	out := UpdateRequest{FullName: trimmed(r.FullName), Phone: trimmed(r.Phone), AvatarURL: trimmed(r.AvatarURL)}

	var errs []error
	if out.FullName != nil {
		errs = append(errs, validate.MaxLen("full_name", *out.FullName, 120))
	}
	if out.Phone != nil {
		errs = append(errs, validate.MaxLen("phone", *out.Phone, 30))
	}
	if out.AvatarURL != nil {
		errs = append(errs, validate.MaxLen("avatar_url", *out.AvatarURL, 500))
	}
	return out, validate.First(errs...)
}

// Apply returns cur with the update applied.
func (r UpdateRequest) Apply(cur Profile) Profile {
	next := cur
	if r.FullName != nil {
		next.FullName = nilIfEmpty(*r.FullName)
	}
	if r.Phone != nil {
		next.Phone = nilIfEmpty(*r.Phone)
	}
	if r.AvatarURL != nil {
		next.AvatarURL = nilIfEmpty(*r.AvatarURL)
	}
	return next
}

// Metadata is what gets mirrored into the identity provider.
func (r UpdateRequest) Metadata() map[string]any {
	m := map[string]any{}
	if r.FullName != nil {
		m["full_name"] = *r.FullName
	}
	if r.Phone != nil {
		m["phone"] = *r.Phone
	}
	return m
}

type RoleRequest struct {
	Role string `json:"role"`
}

func ParseRole(raw string) (string, error) {
	role := strings.TrimSpace(raw)
	if err := validate.OneOf("role", role, roles...); err != nil {
		return "", err
	}
	return role, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
