package telegram

import (
	"context"
	"time"

	"vpn-tool-bot/internal/common/logger"
)

// UpdateHandler consumes one inbound update. The poller and the webhook
// transport both deliver through this.
type UpdateHandler func(ctx context.Context, upd Update)

// Poller pulls updates over getUpdates long polling.
type Poller struct {
	client  *Client
	handler UpdateHandler
	timeout time.Duration
}

func NewPoller(client *Client, handler UpdateHandler) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		timeout: 30 * time.Second,
	}
}

// Run polls until ctx is cancelled. Transport errors back off and retry;
// they never terminate the loop.
func (p *Poller) Run(ctx context.Context) {
	logger.Info().Dur("poll_timeout", p.timeout).Msg("Long polling started")

	var offset int64
	backoff := 2 * time.Second

	for {
		if ctx.Err() != nil {
			logger.Info().Msg("Long polling stopped")
			return
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Long polling stopped")
				return
			}
			logger.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 15*time.Second {
				backoff *= 2
				if backoff > 15*time.Second {
					backoff = 15 * time.Second
				}
			}
			continue
		}
		backoff = 2 * time.Second

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			p.handler(ctx, upd)
		}
	}
}
