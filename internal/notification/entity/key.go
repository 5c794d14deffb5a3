package entity

import "fmt"

// IdempotencyKey builds the deterministic key that makes generation
// re-runnable. The same logical event, the source row it concerns and the
// time bucket it fell in always produce the same key, so overlapping or
// repeated generator runs collapse onto one notification.
func IdempotencyKey(kind Kind, sourceID int64, bucket string) string {
	return fmt.Sprintf("%s:%d:%s", kind, sourceID, bucket)
}
