// Package clock abstracts time for components that need testable clocks.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}
