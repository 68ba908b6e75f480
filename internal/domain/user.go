package domain

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const (
	ProviderPhone  = "phone"
	ProviderGoogle = "google"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Phone        string    `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	GoogleSub    string    `json:"-" dynamodbav:"google_sub,omitempty"`
	Email        string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Name         string    `json:"name" dynamodbav:"name"`
	Role         string    `json:"role" dynamodbav:"role"`
	AuthProvider string    `json:"auth_provider" dynamodbav:"auth_provider"` // "phone" | "google"
	Address      string    `json:"address,omitempty" dynamodbav:"address,omitempty"`
	City         string    `json:"city,omitempty" dynamodbav:"city,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty" dynamodbav:"postal_code,omitempty"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Identity is a uniqueness claim on one identity field of a user.
// PK: identity ("phone#+14165551234", "google#<sub>", "email#a@b.com").
type Identity struct {
	Identity string `dynamodbav:"identity"`
	UserID   string `dynamodbav:"user_id"`
}

func PhoneIdentity(phone string) string { return "phone#" + phone }
func GoogleIdentity(sub string) string  { return "google#" + sub }
func EmailIdentity(email string) string { return "email#" + email }

// Identities lists the identity claims a user record needs.
func (u *User) Identities() []string {
	var out []string
	if u.Phone != "" {
		out = append(out, PhoneIdentity(u.Phone))
	}
	if u.GoogleSub != "" {
		out = append(out, GoogleIdentity(u.GoogleSub))
	}
	if u.Email != "" {
		out = append(out, EmailIdentity(u.Email))
	}
	return out
}

type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=120"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Address    *string `json:"address" validate:"omitempty,max=300"`
	City       *string `json:"city" validate:"omitempty,max=120"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=20"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer admin"`
}
