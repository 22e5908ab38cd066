package runtime

import (
	"time"

	"termweave/internal/term"
)

// Event is an ordered record of one applied rewrite, per spec §3.
type Event struct {
	Step           int
	Rule           string
	Before         term.ID
	BeforeSym      string
	BeforeScale    int
	After          []term.ID
	Scale          int
	Timestamp      time.Time
	SchedulerToken string
}
