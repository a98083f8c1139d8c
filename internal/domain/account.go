package domain

import "time"

// Account is the durable user record owned by the remote directory.
// The UID is unique and the phone number is immutable once created.
type Account struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// RegistrationDraft holds the profile fields a user types before the
// directory record exists. Phone is carried separately in normalized form.
type RegistrationDraft struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"required"`
}

// Blank reports whether any draft field is empty.
func (d RegistrationDraft) Blank() bool {
	return d.Name == "" || d.Email == "" || d.Address == ""
}

// CreateAccountRequest is the body of the atomic create-with-login-record
// call. The directory creates the account and appends the first login record
// in one step.
type CreateAccountRequest struct {
	UID         string `json:"uid" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
	Address     string `json:"address" validate:"required"`
}

// UpdateAccountRequest mutates profile fields only. UID and phone number are
// not updatable through this client.
type UpdateAccountRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty"`
}

// LoginRecord is one entry of an account's createdAt-ordered login history.
type LoginRecord struct {
	ID          string    `json:"id,omitempty"`
	UID         string    `json:"uid"`
	PhoneNumber string    `json:"phoneNumber"`
	Timestamp   time.Time `json:"timestamp"`
	UserAgent   string    `json:"userAgent,omitempty"`
	IPAddress   string    `json:"ipAddress,omitempty"`
}
