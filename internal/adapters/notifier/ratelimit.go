package notifier

import (
	"context"

	"golang.org/x/time/rate"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/services/notify/domain"
)

// Limited paces requests to an inner notifier
type Limited struct {
	inner domain.Notifier
	lim   *rate.Limiter
}

// NewLimited allows perSecond requests with the given burst; perSecond <= 0
// returns inner unchanged
func NewLimited(inner domain.Notifier, perSecond float64, burst int) domain.Notifier {
	if perSecond <= 0 {
		return inner
	}
	return &Limited{inner: inner, lim: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

// Send implements domain.Notifier
func (l *Limited) Send(ctx context.Context, req fire.NotificationRequest) (domain.Delivery, error) {
	if err := l.lim.Wait(ctx); err != nil {
		return domain.Delivery{Failed: 1}, perr.Wrap(err, perr.ErrorCodeTooManyRequests, "notifier rate limit")
	}
	return l.inner.Send(ctx, req)
}
