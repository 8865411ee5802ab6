package postgresadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UUIDGenerator creates stable UUIDv4 identifiers for sheets and events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// SystemClock is the production UTC clock behind the Clock port.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
