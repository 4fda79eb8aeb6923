package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
)

var ErrInvalid = errors.New("invalid settings")

type Service struct {
	store *storage.Store
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store}
}

// Get returns the effective settings with consumer-side clamping applied.
func (s *Service) Get(ctx context.Context) model.Settings {
	return Normalize(s.store.Settings(ctx))
}

// Save replaces the stored settings wholesale.
func (s *Service) Save(ctx context.Context, next model.Settings) (model.Settings, error) {
	if err := Validate(next); err != nil {
		return model.Settings{}, err
	}

	err := s.store.Update(ctx, []string{storage.KeySettings}, func(tx *storage.Tx) error {
		tx.Settings = next
		return nil
	})
	if err != nil {
		return model.Settings{}, err
	}
	return Normalize(next), nil
}

// Normalize clamps values the gate engine cannot run with.
func Normalize(s model.Settings) model.Settings {
	if s.TotalSteps <= 0 {
		s.TotalSteps = 1
	}
	if s.WaitSeconds < 0 {
		s.WaitSeconds = 0
	}
	if s.CPMRate < 0 {
		s.CPMRate = 0
	}
	return s
}

func Validate(s model.Settings) error {
	if s.TotalSteps < 1 {
		return fmt.Errorf("%w: totalSteps must be >= 1", ErrInvalid)
	}
	if s.WaitSeconds < 0 {
		return fmt.Errorf("%w: waitSeconds must be >= 0", ErrInvalid)
	}
	if s.CPMRate < 0 {
		return fmt.Errorf("%w: cpmRate must be >= 0", ErrInvalid)
	}
	if s.MinWithdrawal < 0 {
		return fmt.Errorf("%w: minWithdrawal must be >= 0", ErrInvalid)
	}
	for _, plan := range model.Plans {
		cfg, ok := s.Plans[plan]
		if !ok {
			return fmt.Errorf("%w: missing plan %s", ErrInvalid, plan)
		}
		if cfg.LinkLimit < model.NoLimit {
			return fmt.Errorf("%w: %s linkLimit must be >= %d", ErrInvalid, plan, model.NoLimit)
		}
		if cfg.Price < 0 {
			return fmt.Errorf("%w: %s price must be >= 0", ErrInvalid, plan)
		}
	}
	return nil
}
