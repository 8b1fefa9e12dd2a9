package common

import "time"

const (
	// RedisKeyTickerAnalysisLock guards the select-then-mark window of a single
	// ticker analysis against concurrent requests.
	RedisKeyTickerAnalysisLock = "analysis:lock:%s"

	// TickerAnalysisLockTTL bounds how long a crashed analysis can hold a lock.
	TickerAnalysisLockTTL = 2 * time.Minute
)
