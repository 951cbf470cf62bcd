package utils

import "time"

// NowUTCISO returns the current UTC time as a second-precision ISO-8601
// string, the canonical timestamp format in the database.
func NowUTCISO() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}
