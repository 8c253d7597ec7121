package format

import "time"

// TimeToStamp converts t to the header timestamp encoding, Unix nanoseconds.
// Times before the epoch encode as 0.
func TimeToStamp(t time.Time) uint64 {
	ns := t.UnixNano()
	if ns < 0 {
		ns = 0
	}
	return uint64(ns)
}

// StampToTime converts a header timestamp to a UTC time.Time.
func StampToTime(v uint64) time.Time {
	if v > uint64(1<<63-1) {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(0, int64(v)).UTC()
}
