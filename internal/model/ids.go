package model

import (
	"time"

	"github.com/google/uuid"
)

// ID prefixes for generated entity ids.
const (
	UserIDPrefix    = "user-"
	ProductIDPrefix = "prod-"
)

// NewUserID returns a fresh user id.
func NewUserID() string {
	return UserIDPrefix + uuid.NewString()
}

// Now is the timestamp stamped on new entities.
func Now() time.Time {
	return time.Now().UTC()
}
