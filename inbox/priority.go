package inbox

import (
	"math"
	"time"
)

// =============================================================================
// SIGNAL - Inputs of the priority score
// =============================================================================

// Signal aggregates everything the score needs for one conversation.
// It is transient: built per inbox render, never persisted.
type Signal struct {
	HasRisk             bool
	SlaRemainingMinutes *int // nil when no SLA clock is running
	SlaWarningMinutes   int
	IsUnreported        bool
	IsPaused            bool
	PlanPriorityLevel   int        // 1 = highest tier; expected 1-3
	LastMessageAt       *time.Time // nil skips the recency bonus

	// Reply selects the primary scoring path. nil is the legacy path.
	Reply ReplyState
}

// ReplyState is the primary-tier variant of a Signal.
//
// Two scoring algorithms exist: the legacy SLA-only path, for callers that
// never computed reply state, and the reply-aware path. They are mutually
// exclusive, so the choice is a type rather than an optional field.
type ReplyState interface {
	primaryScore(s Signal) int
}

// LegacyReply scores on SLA warning alone.
type LegacyReply struct{}

// ReplyAware scores on whether the user is waiting for a reply.
type ReplyAware struct {
	HasUnrepliedMessage bool
	HasSentTodayMessage bool
}

// =============================================================================
// SCORE BANDS
// =============================================================================

// Tier bands are spaced by orders of magnitude so modifiers cannot lift a
// conversation across a tier boundary.
const (
	ScoreUnreplied      = 10000
	ScoreNotSentToday   = 5000
	ScoreUpToDate       = 1000
	ScoreSlaWarning     = 1000
	SlaUrgencyCeiling   = 1000
	ScoreRisk           = 500
	ScoreUnreported     = 300
	ScorePerPlanLevel   = 100
	PlanLevelBase       = 4
	RecencyBonusMaxHour = 50
	PausedPenalty       = 5000
)

func (LegacyReply) primaryScore(s Signal) int {
	if s.SlaRemainingMinutes != nil && *s.SlaRemainingMinutes <= s.SlaWarningMinutes {
		return ScoreSlaWarning
	}
	return 0
}

func (r ReplyAware) primaryScore(s Signal) int {
	switch {
	case r.HasUnrepliedMessage:
		score := ScoreUnreplied
		if s.SlaRemainingMinutes != nil {
			score += max(0, SlaUrgencyCeiling-*s.SlaRemainingMinutes)
		}
		return score
	case !r.HasSentTodayMessage:
		return ScoreNotSentToday
	default:
		return ScoreUpToDate
	}
}

// =============================================================================
// PRIORITY ENGINE
// =============================================================================

// CalculatePriority returns the inbox urgency score; higher is more urgent.
//
// The score is additive and unbounded:
//
//	primary tier (see ReplyState)
//	+500 risk, +300 unreported
//	+(4 - plan level) * 100
//	+max(0, 50 - floor(hours since last message))
//	-5000 when paused
//
// A paused conversation can go negative; negative scores sort below all
// non-negative ones. Plan levels outside 1-3 are not rejected.
func CalculatePriority(s Signal, now time.Time) int {
	reply := s.Reply
	if reply == nil {
		reply = LegacyReply{}
	}

	score := reply.primaryScore(s)

	if s.HasRisk {
		score += ScoreRisk
	}
	if s.IsUnreported {
		score += ScoreUnreported
	}
	score += (PlanLevelBase - s.PlanPriorityLevel) * ScorePerPlanLevel

	if s.LastMessageAt != nil {
		score += recencyBonus(*s.LastMessageAt, now)
	}

	if s.IsPaused {
		score -= PausedPenalty
	}
	return score
}

// recencyBonus decays one point per hour from 50 to 0. A timestamp ahead of
// now counts as age zero, so the bonus never exceeds 50.
func recencyBonus(lastMessageAt, now time.Time) int {
	ageHours := math.Floor(now.Sub(lastMessageAt).Hours())
	if ageHours < 0 {
		ageHours = 0
	}
	return max(0, RecencyBonusMaxHour-int(ageHours))
}
