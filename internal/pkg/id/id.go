package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// inquiry and notice ids in the same order as their created_at.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
