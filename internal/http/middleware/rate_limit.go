package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seatwise/reservations/internal/http/response"
	"github.com/seatwise/reservations/pkg/logger"
)

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	Requests int                            // max requests per window
	Window   time.Duration                  // window duration
	KeyFunc  func(r *http.Request) []string // keys to count against (IP, email, ...)
	SkipFunc func(r *http.Request) bool     // skip rate limiting when true
}

// RateLimiter counts requests in fixed Redis windows. A Redis outage fails
// open; rate limiting is protection, not a dependency.
type RateLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}
	return &RateLimiter{client: client, config: config}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.config.SkipFunc != nil && rl.config.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			for _, key := range rl.config.KeyFunc(r) {
				if !rl.allow(r.Context(), key) {
					response.RateLimit(w, "too many requests, try again later")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// Keys are hashed so raw IPs and emails never land in Redis.
	sum := sha256.Sum256([]byte(key))
	window := time.Now().Unix() / int64(rl.config.Window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%x:%d", sum, window)

	count, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logger.ErrorContext(ctx, "rate limiter unavailable, failing open", "error", err)
		return true
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.config.Window).Err(); err != nil {
			logger.ErrorContext(ctx, "failed to set rate limit expiry", "error", err)
		}
	}

	return count <= int64(rl.config.Requests)
}

// IPKeyFunc rate limits by client IP.
func IPKeyFunc(r *http.Request) []string {
	if ip := getClientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

// getClientIP extracts the real client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP if there are multiple
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
