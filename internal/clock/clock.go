// Package clock supplies the current time and the calendar date that
// "today" means for drinking status and likes.
package clock

import (
	"time"

	"github.com/takumayoshiokadotcom/kyonomi/internal/db"
)

type Clock interface {
	Now() time.Time
}

// System is the wall clock in a fixed location.
type System struct {
	Loc *time.Location
}

func (s System) Now() time.Time {
	if s.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.Loc)
}

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Fixed always reports t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}

// Today formats the clock's current date as YYYY-MM-DD.
func Today(c Clock) string {
	return c.Now().Format(db.DateLayout)
}
