package app

import (
	"time"

	"flightres/internal/fr"
)

// SessionIDFormat is the layout of session ids: the UTC start time.
const SessionIDFormat = "20060102T150405Z"

// Session identifies one run of a CLI command. Its ID is stamped on every
// log line the run writes, so the lines of one run can be grepped together.
type Session struct {
	ID      string
	Command string
	Started time.Time
}

// NewSession starts a session for command at the clock's current time.
func NewSession(command string, clock fr.Clock) *Session {
	now := clock.Now().UTC()
	return &Session{
		ID:      now.Format(SessionIDFormat),
		Command: command,
		Started: now,
	}
}

// Elapsed returns how long the session has been running.
func (s *Session) Elapsed(clock fr.Clock) time.Duration {
	return clock.Now().Sub(s.Started)
}
