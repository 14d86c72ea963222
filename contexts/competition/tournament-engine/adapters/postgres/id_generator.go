package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator issues tournament, judge and event ids. Competitor, lap and
// battle ids come from bigserial columns instead.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
