package domain

import "time"

// Session is the transient identity-provider session established by a
// successful code confirmation. It proves verified possession of PhoneNumber;
// it does NOT imply a directory Account exists — the flow reconciles the two.
type Session struct {
	UID             string    `json:"uid"`
	PhoneNumber     string    `json:"phoneNumber"`
	IDToken         string    `json:"-"`
	RefreshToken    string    `json:"-"`
	AuthenticatedAt time.Time `json:"authenticatedAt"`
}
