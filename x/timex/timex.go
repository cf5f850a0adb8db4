package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromUs returns a Duration for a period given in microseconds.
// us==0 is coerced to 1 to avoid a zero-period ticker.
func PeriodFromUs(us uint32) time.Duration {
	if us == 0 {
		us = 1
	}
	return time.Duration(us) * time.Microsecond
}
