package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const ListingCreatedSubject = "listing.created"

type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(url, subject string, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("nodepop"),
		nats.Timeout(5 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return NewPublisherWithConn(nc, subject, logger), nil
}

func NewPublisherWithConn(nc *nats.Conn, subject string, logger *zap.Logger) *Publisher {
	if subject == "" {
		subject = ListingCreatedSubject
	}
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

func (p *Publisher) PublishListingCreated(ctx context.Context, listing *domain.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to marshal listing for %s: %w", p.subject, err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish NATS message for %s: %w", p.subject, err)
	}
	p.logger.Debug("Published NATS message",
		zap.String("subject", p.subject),
		zap.String("listing_id", listing.ID),
	)
	return nil
}

func (p *Publisher) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Error("Error draining NATS connection", zap.Error(err))
	}
	p.logger.Info("NATS publisher connection closed")
}
