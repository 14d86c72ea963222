package outbox

// Outbox rows are written in the same transaction as tournament state.
// The worker relay publishes pending rows and marks them published.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
