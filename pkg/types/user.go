package types

import (
	"strings"
	"time"
)

type User struct {
	ID                   string     `db:"id"`
	Email                *string    `db:"email"`
	GivenName            *string    `db:"given_name"`
	FamilyName           *string    `db:"family_name"`
	WalletAddress        *string    `db:"wallet_address"`
	IsVerified           bool       `db:"is_verified"`
	VerifiedAt           *time.Time `db:"verified_at"`
	VerificationDocument *string    `db:"verification_document"`
	VerificationVideo    *string    `db:"verification_video"`
	DefaultHomepage      *string    `db:"default_homepage"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// DisplayName joins the name parts the user registered with, falling back
// to the email local part.
func (u *User) DisplayName() string {
	var parts []string
	if u.GivenName != nil && strings.TrimSpace(*u.GivenName) != "" {
		parts = append(parts, strings.TrimSpace(*u.GivenName))
	}
	if u.FamilyName != nil && strings.TrimSpace(*u.FamilyName) != "" {
		parts = append(parts, strings.TrimSpace(*u.FamilyName))
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if u.Email != nil {
		if at := strings.Index(*u.Email, "@"); at > 0 {
			return (*u.Email)[:at]
		}
	}
	return ""
}
