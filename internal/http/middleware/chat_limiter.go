package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careconnect/pkg/logging"
)

const chatWindow = time.Minute

// WindowLimiter counts events per key over a rolling window.
type WindowLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisWindowLimiter keeps one sorted set per key scored by event time.
type RedisWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisWindowLimiter(client *redis.Client, limit int) *RedisWindowLimiter {
	if client == nil {
		panic("middleware: redis client cannot be nil")
	}
	return &RedisWindowLimiter{
		client: client,
		limit:  limit,
		window: chatWindow,
		prefix: "careconnect:ratelimit:chat:",
		now:    time.Now,
	}
}

// Allow records the event and counts the window in one MULTI, so
// concurrent callers cannot all pass at limit-1. A rejected event is
// removed again and never admits a later caller.
func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	now := l.now()
	redisKey := l.prefix + key
	cutoff := now.Add(-l.window).UnixMicro()
	member := uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("middleware: record chat event: %w", err)
	}
	if count.Val() <= int64(l.limit) {
		return true, nil
	}
	if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return false, fmt.Errorf("middleware: drop rejected chat event: %w", err)
	}
	return false, nil
}

// MemoryWindowLimiter is the in-process equivalent of RedisWindowLimiter.
type MemoryWindowLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemoryWindowLimiter(limit int) *MemoryWindowLimiter {
	return &MemoryWindowLimiter{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: chatWindow,
		now:    time.Now,
	}
}

func (l *MemoryWindowLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.events[key][:0]
	for _, at := range l.events[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= l.limit {
		l.events[key] = kept
		return false, nil
	}
	l.events[key] = append(kept, now)
	return true, nil
}

// FallbackWindowLimiter uses primary and switches to secondary for a call
// when primary errors.
type FallbackWindowLimiter struct {
	primary   WindowLimiter
	secondary WindowLimiter
	logger    *logging.Logger
}

func NewFallbackWindowLimiter(primary, secondary WindowLimiter, logger *logging.Logger) *FallbackWindowLimiter {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackWindowLimiter{primary: primary, secondary: secondary, logger: logger}
}

func (l *FallbackWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := l.primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	l.logger.Warn("chat rate limiter unavailable, using in-memory window", "error", err)
	return l.secondary.Allow(ctx, key)
}

// ChatRateLimit limits messages per chat session. The session is read from
// the sessionID route parameter, so the middleware must be mounted inline on
// the message route.
func ChatRateLimit(limiter WindowLimiter, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := chi.URLParam(r, "sessionID")
			if key == "" {
				key = r.URL.Query().Get("session")
			}
			if key == "" {
				key = clientIP(r)
			}
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// Chat stays available when the limiter backend is down.
				logger.Error("chat rate limit check failed", "session_id", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(chatWindow.Seconds())))
				http.Error(w, "too many messages, please wait a moment", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
