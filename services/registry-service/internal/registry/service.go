package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/product"
	"github.com/md-rashed-zaman/orderflow/services/registry-service/internal/storage"
)

var (
	ErrSkuExists = errors.New("an active product with this sku already exists")
	ErrNotFound  = errors.New("product not found")
)

// Service executes product commands. Every successful command commits the
// aggregate snapshot, the event log entry and the outbox entry in one
// transaction.
type Service struct {
	repo     *storage.ProductRepository
	eventLog *cqrs.EventLogRepository
	outbox   *cqrs.OutboxRepository
	logger   *slog.Logger
}

func NewService(repo *storage.ProductRepository, eventLog *cqrs.EventLogRepository, outbox *cqrs.OutboxRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, eventLog: eventLog, outbox: outbox, logger: logger}
}

func (s *Service) RegisterProduct(ctx context.Context, sku product.SkuID, name, description string) (*product.Product, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	exists, err := s.repo.ExistsBySku(ctx, tx, sku)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrSkuExists
	}

	p, env, err := product.Register(sku, name, description)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.recordAndPublish(ctx, tx, env); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("product registered", "product_id", p.ID.String(), "sku", sku.String())
	return p, nil
}

func (s *Service) UpdateName(ctx context.Context, id product.ProductID, name string) (*product.Product, error) {
	return s.mutate(ctx, id, func(p *product.Product) (product.Envelope, error) {
		return p.UpdateName(name)
	})
}

func (s *Service) UpdateDescription(ctx context.Context, id product.ProductID, description string) (*product.Product, error) {
	return s.mutate(ctx, id, func(p *product.Product) (product.Envelope, error) {
		return p.UpdateDescription(description)
	})
}

func (s *Service) Retire(ctx context.Context, id product.ProductID) (*product.Product, error) {
	return s.mutate(ctx, id, func(p *product.Product) (product.Envelope, error) {
		return p.Retire()
	})
}

func (s *Service) mutate(ctx context.Context, id product.ProductID, apply func(*product.Product) (product.Envelope, error)) (*product.Product, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}

	env, err := apply(p)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := s.recordAndPublish(ctx, tx, env); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("product updated",
		"product_id", p.ID.String(), "event_type", env.Event.EventType(), "version", p.Version)
	return p, nil
}

// recordAndPublish appends the event and enqueues its delivery in the
// caller's transaction.
func (s *Service) recordAndPublish(ctx context.Context, tx pgx.Tx, env product.Envelope) error {
	entry, err := product.ToLogEntry(env)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	logged, err := s.eventLog.Append(ctx, tx, entry)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if err := s.outbox.Publish(ctx, tx, logged.ID); err != nil {
		return fmt.Errorf("publish outbox: %w", err)
	}
	return nil
}
