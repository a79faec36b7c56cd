package cache

import "time"

// SetClock replaces the time source of m.
func SetClock(m *Memory, now func() time.Time) { m.now = now }
