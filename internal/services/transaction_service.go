package services

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// TransactionService orchestrates transaction writes across SQLite and the
// mirror queue. Mirror publishing is best-effort: a failed publish never
// fails the user's request, the periodic pending-scan catches up later.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Create validates, normalizes and stores a transaction, then publishes a
// mirror message. The category must already exist for the owner.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	registry, err := s.Registry(ctx, t.OwnerID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load categories: %w", err)
	}
	if !registry.Has(t.Category) {
		return core.Transaction{}, core.ErrUnknownCategory
	}

	saved, err := s.storage.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishSyncMessage(ctx, saved.ID, saved.OwnerID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
		// Transaction is saved locally; the pending scan will mirror it.
	}

	return saved, nil
}

// Delete removes a transaction by id for the owner.
func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.storage.DeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// List returns the owner's transactions, newest first, after applying the
// given filter.
func (s *TransactionService) List(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	all, err := s.storage.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return f.Apply(all), nil
}

// ListAll returns the owner's full unfiltered history.
func (s *TransactionService) ListAll(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	all, err := s.storage.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return all, nil
}

// Registry loads the owner's category names as a validated registry.
func (s *TransactionService) Registry(ctx context.Context, ownerID string) (core.Registry, error) {
	cats, err := s.storage.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Registry{}, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return core.NewRegistry(names), nil
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id, ownerID string) error {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id, ownerID)
}

// Close closes the AMQP connection; storage is owned by the caller.
func (s *TransactionService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close amqp: %w", err)
		}
	}
	return nil
}
