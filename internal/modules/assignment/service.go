// README: Job assignment coordinator; arbitrates concurrent claims on pending bookings.
package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"lustre/internal/types"
)

var ErrAlreadyClaimed = errors.New("booking already claimed")

// Claimer is the single conditional write the coordinator relies on: assign a
// worker only if the booking is still pending. The booking store implements it.
type Claimer interface {
	ClaimPending(ctx context.Context, id, workerID types.ID, now time.Time) (bool, error)
}

type Service struct {
	store Claimer
	pool  Pool
	log   *logrus.Logger
}

func NewService(store Claimer, pool Pool, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: store, pool: pool, log: log}
}

// Claim makes workerID the assigned worker for the booking iff it is still
// pending. Exactly one concurrent claimer wins; all others get
// ErrAlreadyClaimed and must not retry the same booking. No locking beyond the
// store's conditional write.
func (s *Service) Claim(ctx context.Context, bookingID, workerID types.ID) error {
	ok, err := s.store.ClaimPending(ctx, bookingID, workerID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyClaimed
	}
	// Pool upkeep is best effort; a stale entry resolves to ErrAlreadyClaimed
	// on the next claim attempt.
	if err := s.pool.Remove(ctx, bookingID); err != nil {
		s.log.WithError(err).WithField("booking", bookingID).Warn("remove claimed job from pool")
	}
	return nil
}

// OpenJob publishes a pending booking to the worker-visible pool.
func (s *Service) OpenJob(ctx context.Context, bookingID types.ID) error {
	return s.pool.Add(ctx, bookingID)
}

// CloseJob withdraws a booking from the pool (cancelled before any claim).
func (s *Service) CloseJob(ctx context.Context, bookingID types.ID) error {
	return s.pool.Remove(ctx, bookingID)
}

// OpenJobs lists booking ids currently claimable by workers.
func (s *Service) OpenJobs(ctx context.Context) ([]types.ID, error) {
	return s.pool.List(ctx)
}
