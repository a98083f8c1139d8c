package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, which keeps flow-attempt ids and login-history record ids ordered in
// logs and listings.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
