package usecase

import "time"

const (
	defaultBackoffBase = 30 * time.Second
	defaultBackoffCap  = time.Hour
	defaultMaxAttempts = int32(5)
)

// backoffDelay returns how long a failed attempt waits before becoming
// claimable again. Delays double from the base and are monotonically
// non-decreasing, clamped at the cap.
func (s *Usecase) backoffDelay(attemptNo int32) time.Duration {
	base := s.cfg.GetSecond("notification.backoff_base_seconds")
	if base <= 0 {
		base = defaultBackoffBase
	}
	limit := s.cfg.GetSecond("notification.backoff_cap_seconds")
	if limit <= 0 {
		limit = defaultBackoffCap
	}

	delay := base
	for i := int32(1); i < attemptNo; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}

	return delay
}

func (s *Usecase) maxAttempts() int32 {
	if v := s.cfg.GetInt32("notification.max_attempts"); v > 0 {
		return v
	}
	return defaultMaxAttempts
}
