package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sanad/internal/config"
	"go.uber.org/zap"
)

// admitScript keeps, per key, the server time in milliseconds at which the
// client's schedule is next free. A request is admitted while that schedule
// runs no more than ARGV[2] ms ahead of now; each admission pushes it out by
// ARGV[1] ms. Replies {1, 0} on admit and {0, wait_ms} on refusal.
const admitScript = `
local spacing = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local free_at = tonumber(redis.call("GET", KEYS[1]))
if free_at == nil or free_at < now then
  free_at = now
end

local next_free = free_at + spacing
local earliest = next_free - window
if earliest > now then
  return {0, earliest - now}
end

redis.call("SET", KEYS[1], next_free, "PX", next_free - now)
return {1, 0}
`

const lookupKeyPrefix = "sanad:ratelimit:lookup:"

// LookupLimiter throttles public track and history lookups per client
// address. Phone matching is the only ownership factor on those routes.
// Every API instance shares the schedule through redis.
type LookupLimiter struct {
	client  *redis.Client
	script  *redis.Script
	spacing time.Duration
	burst   int
	log     *zap.Logger
}

// NewLookupLimiter returns a disabled limiter when redis is absent or the
// configured rate or burst is not positive.
func NewLookupLimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *LookupLimiter {
	l := &LookupLimiter{
		burst: cfg.RateLimit.LookupBurst,
		log:   log.Named("ratelimit.lookup"),
	}
	if client == nil || cfg.RateLimit.LookupRate <= 0 || l.burst <= 0 {
		return l
	}
	l.client = client
	l.script = redis.NewScript(admitScript)
	l.spacing = admissionSpacing(cfg.RateLimit.LookupRate)
	return l
}

func (l *LookupLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Allow reports whether clientIP may look up another claim now, and how long
// to wait when it may not. Redis failures let the request through.
func (l *LookupLimiter) Allow(ctx context.Context, clientIP string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}
	spacing := l.spacing.Milliseconds()
	reply, err := l.script.Run(ctx, l.client, []string{lookupKey(clientIP)}, spacing, spacing*int64(l.burst)).Int64Slice()
	if err == nil {
		var allowed bool
		var wait time.Duration
		allowed, wait, err = decodeAdmit(reply)
		if err == nil {
			return allowed, wait
		}
	}
	l.log.Warn("lookup rate limit unavailable", zap.Error(err))
	return true, 0
}

func lookupKey(clientIP string) string {
	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		ip = "unknown"
	}
	return lookupKeyPrefix + ip
}

// admissionSpacing converts a per-second rate into whole milliseconds
// between admissions, rounding up so the rate is never exceeded.
func admissionSpacing(perSecond float64) time.Duration {
	ms := math.Ceil(1000 / perSecond)
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

func decodeAdmit(reply []int64) (bool, time.Duration, error) {
	if len(reply) != 2 {
		return false, 0, fmt.Errorf("admit script replied with %d values", len(reply))
	}
	if reply[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(reply[1]) * time.Millisecond, nil
}
