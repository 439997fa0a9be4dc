// Package events fans committed ledger events out to the event bus.
package events

import (
	"context"
	"strconv"

	"github.com/Clement-coder/retrust-marketplace/internal/domain"
	"github.com/Clement-coder/retrust-marketplace/pkg/log"
	"github.com/Clement-coder/retrust-marketplace/pkg/pubsub"
)

// Publisher pushes committed ledger events onto the bus. Publishing is
// best effort: the event row is already durable in the database, so a
// bus failure is logged and swallowed rather than failing the operation
// that produced it. Consumers that need completeness replay from the
// event log endpoint.
type Publisher struct {
	bus pubsub.Publisher
}

// NewPublisher creates a publisher over the given bus. A nil bus
// disables publishing entirely.
func NewPublisher(bus pubsub.Publisher) *Publisher {
	return &Publisher{bus: bus}
}

// Publish sends each event to its entity channel: product-scoped events
// go to the product channel, the rest to the actor's user channel.
func (p *Publisher) Publish(ctx context.Context, evts ...*domain.LedgerEvent) {
	if p.bus == nil {
		return
	}
	l := log.Ctx(ctx)

	for _, evt := range evts {
		if evt == nil {
			continue
		}

		channel := pubsub.UserChannel(evt.Actor)
		if evt.ProductID != nil {
			channel = pubsub.ProductChannel(*evt.ProductID)
		}

		busEvt, err := pubsub.NewEvent(evt.Type, channelEntityID(evt), evt)
		if err != nil {
			l.Error().Err(err).Str(log.FieldEventType, evt.Type).Msg("failed to encode bus event")
			continue
		}

		if err := p.bus.Publish(ctx, channel, busEvt); err != nil {
			l.Error().Err(err).
				Str(log.FieldEventType, evt.Type).
				Uint64(log.FieldEventSeq, evt.Seq).
				Msg("failed to publish ledger event")
		}
	}
}

func channelEntityID(evt *domain.LedgerEvent) string {
	if evt.ProductID != nil {
		return strconv.FormatUint(*evt.ProductID, 10)
	}
	return evt.Actor
}
