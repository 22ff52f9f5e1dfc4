package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/cbrbot/core/logger"
	"github.com/m3rciful/cbrbot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now is used by tests; defaults to time.Now.
	Now func() time.Time
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var (
		mu       sync.Mutex
		lastSeen = make(map[int64]time.Time)
		lastGC   time.Time
	)
	allow := func(userID int64, at time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if at.Sub(lastGC) > time.Minute {
			for id, ts := range lastSeen {
				if at.Sub(ts) >= opts.Interval {
					delete(lastSeen, id)
				}
			}
			lastGC = at
		}
		if last, ok := lastSeen[userID]; ok && at.Sub(last) < opts.Interval {
			return false
		}
		lastSeen[userID] = at
		return true
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if allow(user.ID, now()) {
				return next(c)
			}

			metrics.RateLimitedTotal.WithLabelValues(kind).Inc()
			attrs := []any{
				slog.String("event", "tg.rate_limit"),
				slog.String("kind", kind),
				slog.Int64("user_id", user.ID),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.TG.Warn("rate limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
