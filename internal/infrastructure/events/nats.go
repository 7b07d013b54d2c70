// Package events keeps the local catalog and vector index in step with
// catalog change notifications delivered over NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/catalogmatch/backend/internal/domain"
)

// DefaultSubject carries catalog change events
const DefaultSubject = "catalog.items.changed"

const defaultHandleTimeout = 30 * time.Second

// Change kinds
const (
	ChangeUpsert = "upsert"
	ChangeDelete = "delete"
)

// CatalogChange is the payload of a catalog change event
type CatalogChange struct {
	Type   string              `json:"type"`
	ItemID string              `json:"itemId,omitempty"`
	Item   *domain.CatalogItem `json:"item,omitempty"`
}

// ItemIndexer enrolls and removes single items from semantic search
type ItemIndexer interface {
	IndexItem(ctx context.Context, item domain.CatalogItem, force bool) error
	RemoveItem(ctx context.Context, id string) error
}

// CatalogStore is the catalog mirror the consumer writes to
type CatalogStore interface {
	domain.CatalogRepository
	Delete(ctx context.Context, id string) error
}

// Consumer applies catalog change events
type Consumer struct {
	catalog CatalogStore
	indexer ItemIndexer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewConsumer creates a consumer
func NewConsumer(catalog CatalogStore, indexer ItemIndexer, logger zerolog.Logger) *Consumer {
	return &Consumer{
		catalog: catalog,
		indexer: indexer,
		timeout: defaultHandleTimeout,
		logger:  logger.With().Str("component", "catalog_events").Logger(),
	}
}

// Subscribe registers the consumer on subject
func (c *Consumer) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		if err := c.HandleMessage(ctx, msg.Data); err != nil {
			c.logger.Error().Err(err).Str("subject", msg.Subject).Msg("failed to apply catalog change")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.logger.Info().Str("subject", subject).Msg("listening for catalog changes")
	return sub, nil
}

// HandleMessage decodes and applies one change event
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	var change CatalogChange
	if err := json.Unmarshal(data, &change); err != nil {
		return fmt.Errorf("decode change: %w", err)
	}

	switch change.Type {
	case ChangeUpsert:
		if change.Item == nil {
			return errors.New("upsert event without item")
		}
		return c.applyUpsert(ctx, *change.Item)
	case ChangeDelete:
		id := change.ItemID
		if id == "" && change.Item != nil {
			id = change.Item.ID
		}
		if id == "" {
			return errors.New("delete event without item id")
		}
		return c.applyDelete(ctx, id)
	default:
		return fmt.Errorf("unknown change type %q", change.Type)
	}
}

// applyUpsert stores the item and re-embeds it only when its embedded text changed
func (c *Consumer) applyUpsert(ctx context.Context, item domain.CatalogItem) error {
	previous, err := c.catalog.FindByIDs(ctx, []string{item.ID})
	if err != nil {
		return fmt.Errorf("read %s: %w", item.ID, err)
	}
	if err := c.catalog.Upsert(ctx, []domain.CatalogItem{item}); err != nil {
		return fmt.Errorf("store %s: %w", item.ID, err)
	}

	if len(previous) == 1 && previous[0].HasEmbedding() &&
		previous[0].EmbeddingText() == item.EmbeddingText() {
		item.Embedding = previous[0].Embedding
		if err := c.indexer.IndexItem(ctx, item, false); err != nil {
			return fmt.Errorf("index %s: %w", item.ID, err)
		}
		c.logger.Debug().Str("item_id", item.ID).Msg("catalog item updated, embedding kept")
		return nil
	}

	if err := c.indexer.IndexItem(ctx, item, true); err != nil {
		// the previous vector stays in use until the next reindex
		c.logger.Warn().Err(err).Str("item_id", item.ID).Msg("failed to embed changed item")
		return nil
	}
	c.logger.Debug().Str("item_id", item.ID).Msg("catalog item embedded")
	return nil
}

func (c *Consumer) applyDelete(ctx context.Context, id string) error {
	if err := c.indexer.RemoveItem(ctx, id); err != nil {
		return fmt.Errorf("unindex %s: %w", id, err)
	}
	if err := c.catalog.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	c.logger.Debug().Str("item_id", id).Msg("catalog item removed")
	return nil
}

// Publish sends a change event with the trace context of ctx in its headers
func Publish(ctx context.Context, nc *nats.Conn, subject string, change CatalogChange) error {
	if subject == "" {
		subject = DefaultSubject
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return nc.PublishMsg(msg)
}

// headerCarrier adapts NATS headers to an OpenTelemetry TextMapCarrier
type headerCarrier nats.Msg

func (h *headerCarrier) Get(key string) string {
	if h.Header == nil {
		return ""
	}
	return h.Header.Get(key)
}

func (h *headerCarrier) Set(key, val string) {
	if h.Header == nil {
		h.Header = make(nats.Header)
	}
	h.Header.Set(key, val)
}

func (h *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h.Header))
	for k := range h.Header {
		keys = append(keys, k)
	}
	return keys
}
