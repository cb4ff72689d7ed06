package listing

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/models"
	"github.com/ayush/autos-marketplace/backend/internal/store"
)

const (
	syncAttempts = 3
	syncBackoff  = 50 * time.Millisecond
)

// SummaryWriter stores a summary in its owner's sales list. Writing the
// same summary twice must leave a single copy.
type SummaryWriter interface {
	AppendSummary(ctx context.Context, owner primitive.ObjectID, summary models.Summary) error
}

// Synchronizer copies a freshly created listing into its owner's sales.
// The listing insert and this write are separate; nothing rolls the
// listing back if every attempt fails. Summaries are never updated or
// removed when their listing changes.
type Synchronizer struct {
	users    SummaryWriter
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

func NewSynchronizer(users SummaryWriter, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{users: users, logger: logger, attempts: syncAttempts, backoff: syncBackoff}
}

// Append writes the summary of l, retrying transient failures.
func (s *Synchronizer) Append(ctx context.Context, l *models.Listing) error {
	summary := models.Summarize(l)
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.users.AppendSummary(ctx, l.OwnerID, summary)
		if err == nil || errors.Is(err, store.ErrNotFound) {
			return err
		}
		s.logger.Warn("append summary failed",
			zap.String("listing_id", l.ID.Hex()),
			zap.String("owner_id", l.OwnerID.Hex()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}
	return err
}
