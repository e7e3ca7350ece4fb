package domain

import (
	"fmt"
	"regexp"
	"time"
)

// SettingsVersion is the current settings schema version. Rows read
// back at version 0 predate versioning and are upgraded in place.
const SettingsVersion = 1

var brandColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CompanySettings is the per-company settings record. It is stored as a
// versioned JSON column and validated when read back, so integration
// credentials never round-trip through an untyped bag.
type CompanySettings struct {
	Version       int    `json:"version"`
	CannyAPIKey   string `json:"canny_api_key,omitempty"`
	BillingEmail  string `json:"billing_email,omitempty"`
	SupportEmail  string `json:"support_email,omitempty"`
	BrandColorHex string `json:"brand_color_hex,omitempty"`
}

// Validate checks field formats. Unknown versions are rejected so a
// rolled-back binary never silently rewrites settings it does not
// understand.
func (s *CompanySettings) Validate() error {
	if s.Version > SettingsVersion {
		return fmt.Errorf("unsupported settings version %d", s.Version)
	}
	if s.BrandColorHex != "" && !brandColorPattern.MatchString(s.BrandColorHex) {
		return fmt.Errorf("brand color must be a hex color like #1a2b3c")
	}
	return nil
}

type Company struct {
	ID        int32           `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Settings  CompanySettings `json:"settings"`
	CreatedOn time.Time       `json:"created_on"`
	UpdatedOn time.Time       `json:"updated_on"`
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

type CompanyMember struct {
	UserID    int32      `json:"user_id"`
	CompanyID int32      `json:"company_id"`
	Role      MemberRole `json:"role"`
	JoinedOn  time.Time  `json:"joined_on"`
}

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
)

type UserInvite struct {
	ID        int32        `json:"id"`
	CompanyID int32        `json:"company_id"`
	Email     string       `json:"email"`
	Name      string       `json:"name,omitempty"`
	Token     string       `json:"-"`
	Status    InviteStatus `json:"status"`
	InvitedBy int32        `json:"invited_by"`
	InvitedOn time.Time    `json:"invited_on"`
}
