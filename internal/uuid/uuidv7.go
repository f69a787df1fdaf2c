// Package uuid generates time-ordered identifiers for primary keys.
package uuid

import googleuuid "github.com/google/uuid"

// New returns a UUIDv7 string. The leading timestamp bits keep freshly
// inserted rows clustered, which matters for the append-heavy transaction
// table. Falls back to a random v4 when the system entropy source fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.New().String()
	}
	return id.String()
}
