package util

// UnixMillis converts a stored Unix-seconds timestamp to milliseconds for
// response payloads.
func UnixMillis(secs int64) int64 {
	return secs * 1000
}
