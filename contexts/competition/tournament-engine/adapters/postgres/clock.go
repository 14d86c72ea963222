package postgresadapter

import "time"

// SystemClock stamps every tournament row and event in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
