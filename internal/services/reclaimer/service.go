package reclaimer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

// Service removes recent handler rows that have aged past their puppet's
// recency window. The sweep is a storage optimization only: aged-out rows
// already grant nothing, because every visibility check applies the
// window itself. Claimed rows are never touched.
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new reclaimer service
func New(store storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		logger:  logger.With(slog.String("service", "reclaimer")),
	}
}

// Sweep finds recent handler rows of open-mode puppets whose last_used
// falls outside the puppet's window at the given instant, and deletes
// them when commit is true. It returns the number of stale rows found.
func (s *Service) Sweep(ctx context.Context, now time.Time, commit bool) (int, error) {
	handlers, err := s.storage.ListRecentHandlers(ctx)
	if err != nil {
		return 0, err
	}

	stale := make([]*model.HandlerAssociation, 0)
	for _, handler := range handlers {
		puppet, err := s.storage.GetPuppet(ctx, handler.PuppetID)
		if err != nil {
			if errors.Is(err, model.ErrPuppetNotFound) {
				continue
			}
			return 0, err
		}
		// Claimed-mode puppets ignore timestamps entirely, so their
		// recent rows are inert but not safe to call stale
		if puppet.VisibilityMode != model.VisibilityOpen {
			continue
		}
		if handler.WithinWindow(now, puppet.Window()) {
			continue
		}
		stale = append(stale, handler)
	}

	if commit {
		for _, handler := range stale {
			if err := s.storage.DeleteHandler(ctx, handler.PuppetID, handler.UserID); err != nil {
				return 0, err
			}
		}
	}

	s.logger.Info("stale handler sweep complete",
		slog.Int("scanned", len(handlers)),
		slog.Int("stale", len(stale)),
		slog.Bool("committed", commit))
	return len(stale), nil
}
