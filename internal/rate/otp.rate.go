package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SukhvirKooner/Louder/shared/utils/cache"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
)

const namespace = "otp_rate"

// Limiter throttles OTP issuance per email: a cooldown between requests, a
// cap per window, and a block of three windows once the cap is exceeded.
type Limiter struct {
	cache       *cache.Cache
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewLimiter(cache *cache.Cache, window time.Duration, max int, cooldown time.Duration) *Limiter {
	return &Limiter{cache: cache, window: window, maxInWindow: max, cooldown: cooldown}
}

// CanRequest returns a *xerrors.RateLimitError when the email must wait.
func (l *Limiter) CanRequest(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	blockKey := "block:" + email
	lastKey := "last:" + email
	countKey := "count:" + email

	if ttl, _ := l.cache.GetTTL(ctx, namespace, blockKey); ttl > 0 {
		return limited("too many OTP requests; please try again after %d seconds", ttl)
	}

	if ttl, _ := l.cache.GetTTL(ctx, namespace, lastKey); ttl > 0 {
		return limited("please wait %d seconds before requesting another OTP", ttl)
	}

	cnt, err := l.cache.IncrWithExpire(ctx, namespace, countKey, l.window)
	if err != nil {
		return fmt.Errorf("otp rate counter: %w", err)
	}

	if int(cnt) > l.maxInWindow {
		block := l.window * 3
		_ = l.cache.Set(ctx, namespace, blockKey, "1", block)
		return limited("too many OTP requests; please try again after %d seconds", block)
	}

	if l.cooldown > 0 {
		_ = l.cache.Set(ctx, namespace, lastKey, "1", l.cooldown)
	}
	return nil
}

func limited(format string, wait time.Duration) error {
	secs := int(wait.Round(time.Second).Seconds())
	return &xerrors.RateLimitError{Reason: fmt.Sprintf(format, secs), RetryAfter: secs}
}
