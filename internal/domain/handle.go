package domain

import "strconv"

// Handle addresses one live browser instance. Handles are assigned in
// increasing order and never reused within a process.
type Handle int64

func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}
