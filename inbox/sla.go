/*
Package inbox ranks the conversations a staff member should attend to next.

PURPOSE:
  A cast's inbox is sorted by a multi-factor urgency score. This package
  derives the time-based states that feed the score (SLA remaining,
  unreported, sent today) and computes the score itself.

KEY CONCEPTS:
  - SLA: minutes left to reply to the last user message (0 = breached)
  - Unreported: neither a check-in nor a message for thresholdDays
  - Sent today: staff already reached out on the current JST day
  - Signal: the per-conversation inputs of the score, built fresh per render

TIME:
  Every function takes an explicit now. Nothing here reads the clock, so
  the same inputs always produce the same score.

SEE ALSO:
  - priority.go: Signal and CalculatePriority
  - builder.go: Signal construction and inbox ranking
*/
package inbox

import (
	"time"

	"github.com/warp/concierge-engine/generic"
)

// DefaultUnreportedThresholdDays is the staleness window of IsUnreported.
const DefaultUnreportedThresholdDays = 2

// =============================================================================
// SLA
// =============================================================================

// CalculateSlaRemaining returns whole minutes until the reply deadline.
//
// Returns nil when there is no user message (no SLA clock running). A
// breached SLA returns 0, never a negative overdue magnitude.
func CalculateSlaRemaining(lastUserMessageAt *time.Time, slaMinutes int, now time.Time) *int {
	if lastUserMessageAt == nil {
		return nil
	}

	deadline := lastUserMessageAt.Add(time.Duration(slaMinutes) * time.Minute)
	remaining := 0
	if left := deadline.Sub(now); left > 0 {
		remaining = int(left / time.Minute)
	}
	return &remaining
}

// =============================================================================
// UNREPORTED
// =============================================================================

// IsUnreported reports whether BOTH the last check-in and the last message
// are absent or older than thresholdDays. A recent value on either side
// disqualifies the user.
func IsUnreported(lastCheckinAt, lastMessageAt *time.Time, thresholdDays int, now time.Time) bool {
	threshold := now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)
	return isStale(lastCheckinAt, threshold) && isStale(lastMessageAt, threshold)
}

func isStale(at *time.Time, threshold time.Time) bool {
	return at == nil || at.Before(threshold)
}

// =============================================================================
// SENT TODAY
// =============================================================================

// HasSentMessageToday reports whether lastSentAt falls on the same JST
// calendar day as now. The operational day is JST regardless of the
// server's zone.
func HasSentMessageToday(lastSentAt *time.Time, now time.Time) bool {
	if lastSentAt == nil {
		return false
	}
	return generic.DateOf(*lastSentAt) == generic.DateOf(now)
}
