package app

import (
	"context"

	"github.com/nhoad/steamnews/internal/domain"
	"github.com/nhoad/steamnews/internal/logger"
	"github.com/nhoad/steamnews/pkg/publishers"
)

// fanoutNotifier bridges engine events to the downstream publisher fanout.
// Delivery failures are logged and never affect engine state.
type fanoutNotifier struct {
	fanout *publishers.Fanout
	log    logger.Logger
}

func newFanoutNotifier(fanout *publishers.Fanout, log logger.Logger) *fanoutNotifier {
	if fanout == nil || fanout.Size() == 0 {
		return nil
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &fanoutNotifier{fanout: fanout, log: log}
}

func (n *fanoutNotifier) GameDiscovered(ctx context.Context, game domain.Game) {
	n.publish(ctx, publishers.NewEvent(publishers.EventGameDiscovered, game.AppID, game.Name, game.EarlyAccess))
}

func (n *fanoutNotifier) FeedPublished(ctx context.Context, game domain.Game) {
	n.publish(ctx, publishers.NewEvent(publishers.EventFeedPublished, game.AppID, game.Name, game.EarlyAccess))
}

func (n *fanoutNotifier) publish(ctx context.Context, evt publishers.Event) {
	if _, err := n.fanout.Publish(ctx, evt); err != nil {
		n.log.WarnObj("event fanout partially failed", "fanout_error", map[string]any{
			"event_type": evt.Type,
			"appid":      evt.AppID,
			"error":      err.Error(),
		})
	}
}
