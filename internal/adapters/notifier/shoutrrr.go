package notifier

import (
	"context"
	"io"
	stdlog "log"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"firewatch/internal/core/fire"
	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/logger"
	"firewatch/internal/services/notify/domain"
)

type router interface {
	Send(message string, params *stypes.Params) []error
}

// Shoutrrr fans a request out to every configured service URL. Each URL is
// one device; the router returns one result per URL.
// It is an operator fan-out driver: every user's requests go to the same URLs,
// not to per-user devices
type Shoutrrr struct {
	r   router
	log logger.Logger
}

// NewShoutrrr builds the router; URLs are validated here so bad config
// fails at boot
func NewShoutrrr(urls []string, timeout time.Duration, log logger.Logger) (*Shoutrrr, error) {
	if len(urls) == 0 {
		return nil, perr.New(perr.ErrorCodeValidation, "shoutrrr: at least one URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// the driver error may echo a token; keep only the code
		return nil, perr.New(perr.ErrorCodeValidation, "shoutrrr: invalid service URL")
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(stdlog.New(io.Discard, "", 0))
	return &Shoutrrr{r: sender, log: log}, nil
}

// Send implements domain.Notifier
func (s *Shoutrrr) Send(_ context.Context, req fire.NotificationRequest) (domain.Delivery, error) {
	m, err := MessageOf(req)
	if err != nil {
		return domain.Delivery{Failed: 1}, err
	}
	params := stypes.Params{}
	params.SetTitle(m.Title)
	var d domain.Delivery
	for i, e := range s.r.Send(m.Body, &params) {
		if e == nil {
			d.Sent++
			continue
		}
		d.Failed++
		s.log.Warn().Int("device", i).Int64("incident_id", req.IncidentID).Msg("shoutrrr delivery failed")
	}
	return d, nil
}
