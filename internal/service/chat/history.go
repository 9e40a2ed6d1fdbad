package chat

import (
	"time"

	"github.com/samber/lo"

	"github.com/mmaung/securitasbot/internal/model/chat"
)

// FilterRecent returns the messages whose creation time falls within the
// trailing retention window measured against now, preserving order.
// Messages without a creation time are always expired.
func FilterRecent(messages []chat.Message, now time.Time, window time.Duration) []chat.Message {
	cutoff := now.Add(-window)
	return lo.Filter(messages, func(m chat.Message, _ int) bool {
		return !m.CreatedAt.IsZero() && !m.CreatedAt.Before(cutoff)
	})
}
