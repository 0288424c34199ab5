package ports

import "time"

// Clock is the single time source every deadline is compared against.
type Clock interface {
	Now() time.Time
}
