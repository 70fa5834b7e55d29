package inbox

import (
	"sort"
	"time"

	"github.com/warp/concierge-engine/generic"
)

// =============================================================================
// CONVERSATION - Persisted state a Signal is derived from
// =============================================================================

// Conversation is the per-user chat state the inbox is built from.
type Conversation struct {
	UserID             generic.UserID
	CastID             generic.CastID
	LastUserMessageAt  *time.Time
	LastStaffMessageAt *time.Time
	LastCheckinAt      *time.Time
	HasRisk            bool
	IsPaused           bool
	PlanPriorityLevel  int
	UpdatedAt          time.Time
}

// HasUnrepliedMessage reports whether the user wrote after staff last did.
func (c Conversation) HasUnrepliedMessage() bool {
	if c.LastUserMessageAt == nil {
		return false
	}
	return c.LastStaffMessageAt == nil || c.LastStaffMessageAt.Before(*c.LastUserMessageAt)
}

// LastMessageAt is the later of the user and staff message times.
func (c Conversation) LastMessageAt() *time.Time {
	switch {
	case c.LastUserMessageAt == nil:
		return c.LastStaffMessageAt
	case c.LastStaffMessageAt == nil:
		return c.LastUserMessageAt
	case c.LastStaffMessageAt.After(*c.LastUserMessageAt):
		return c.LastStaffMessageAt
	default:
		return c.LastUserMessageAt
	}
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds the inbox thresholds.
type Config struct {
	SlaMinutes              int
	SlaWarningMinutes       int
	UnreportedThresholdDays int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SlaMinutes:              60,
		SlaWarningMinutes:       30,
		UnreportedThresholdDays: DefaultUnreportedThresholdDays,
	}
}

// =============================================================================
// SIGNAL BUILDER
// =============================================================================

// BuildSignal derives the reply-aware Signal for a conversation.
func BuildSignal(c Conversation, cfg Config, now time.Time) Signal {
	lastMessage := c.LastMessageAt()
	return Signal{
		HasRisk:             c.HasRisk,
		SlaRemainingMinutes: CalculateSlaRemaining(c.LastUserMessageAt, cfg.SlaMinutes, now),
		SlaWarningMinutes:   cfg.SlaWarningMinutes,
		IsUnreported:        IsUnreported(c.LastCheckinAt, lastMessage, cfg.UnreportedThresholdDays, now),
		IsPaused:            c.IsPaused,
		PlanPriorityLevel:   c.PlanPriorityLevel,
		LastMessageAt:       lastMessage,
		Reply: ReplyAware{
			HasUnrepliedMessage: c.HasUnrepliedMessage(),
			HasSentTodayMessage: HasSentMessageToday(c.LastStaffMessageAt, now),
		},
	}
}

// =============================================================================
// RANKING
// =============================================================================

// Ranked is a conversation with its computed signal and score.
type Ranked struct {
	Conversation Conversation
	Signal       Signal
	Score        int
}

// Rank scores every conversation and sorts descending by score.
// Ties keep input order; callers wanting a secondary key sort beforehand.
func Rank(convs []Conversation, cfg Config, now time.Time) []Ranked {
	ranked := make([]Ranked, len(convs))
	for i, c := range convs {
		signal := BuildSignal(c, cfg, now)
		ranked[i] = Ranked{
			Conversation: c,
			Signal:       signal,
			Score:        CalculatePriority(signal, now),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}
