package users

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store     *storage.Store
	handoff   Handoff
	hashCost  int
	now       func() time.Time
	newID     func() string
	newAPIKey func() string
}

func NewService(store *storage.Store, handoff Handoff) *Service {
	return &Service{
		store:     store,
		handoff:   handoff,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		newAPIKey: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Register creates a FREE user with a freshly generated API key.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	return s.create(ctx, email, password, model.RoleUser, model.PlanFree)
}

func (s *Service) create(ctx context.Context, email, password string, role model.Role, plan model.Plan) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created model.User
	err = s.store.Update(ctx, []string{storage.KeyUsers}, func(tx *storage.Tx) error {
		if tx.UserByEmail(email) != nil {
			return ErrEmailTaken
		}
		key := s.newAPIKey()
		for tx.UserByAPIKey(key) != nil {
			key = s.newAPIKey()
		}
		created = model.User{
			ID:           s.newID(),
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			Plan:         plan,
			APIKey:       key,
			CreatedAt:    s.now().UTC(),
		}
		tx.Users = append(tx.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user registered",
		zap.String("user_id", created.ID),
		zap.String("role", string(created.Role)),
	)
	return &created, nil
}

// Authenticate checks credentials. Suspended users are rejected after the
// password check so the response does not leak account state.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	var found *model.User
	_ = s.store.View(ctx, []string{storage.KeyUsers}, func(tx *storage.Tx) error {
		if u := tx.UserByEmail(email); u != nil {
			cp := *u
			found = &cp
		}
		return nil
	})
	if found == nil || found.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if found.IsSuspended {
		return nil, ErrSuspended
	}
	return found, nil
}

// EnsureAdmin creates the bootstrap administrator on BUSINESS, or promotes an
// existing account with that email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidInput
	}

	var existing *model.User
	err := s.store.Update(ctx, []string{storage.KeyUsers}, func(tx *storage.Tx) error {
		u := tx.UserByEmail(email)
		if u == nil {
			return nil
		}
		u.Role = model.RoleAdmin
		cp := *u
		existing = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	admin, err := s.create(ctx, email, password, model.RoleAdmin, model.PlanBusiness)
	if err != nil {
		return nil, err
	}
	logger.Info("admin account bootstrapped", zap.String("user_id", admin.ID))
	return admin, nil
}

func (s *Service) ByAPIKey(ctx context.Context, key string) (*model.User, error) {
	return s.find(ctx, func(tx *storage.Tx) *model.User { return tx.UserByAPIKey(key) })
}

func (s *Service) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.find(ctx, func(tx *storage.Tx) *model.User { return tx.UserByID(id) })
}

func (s *Service) find(ctx context.Context, lookup func(tx *storage.Tx) *model.User) (*model.User, error) {
	var found *model.User
	_ = s.store.View(ctx, []string{storage.KeyUsers}, func(tx *storage.Tx) error {
		if u := lookup(tx); u != nil {
			cp := *u
			found = &cp
		}
		return nil
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// List returns every user, oldest first.
func (s *Service) List(ctx context.Context) []model.User {
	out := s.store.Users(ctx)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RequestUpgrade records the intent and returns the handoff link. The plan
// itself only changes when an admin applies it.
func (s *Service) RequestUpgrade(ctx context.Context, userID string, plan model.Plan) (string, error) {
	plan, ok := model.ParsePlan(string(plan))
	if !ok {
		return "", ErrInvalidPlan
	}

	err := s.mutate(ctx, userID, func(u *model.User, _ model.Settings) error {
		if u.Plan == plan {
			return fmt.Errorf("%w: already on %s", ErrInvalidPlan, plan)
		}
		p := plan
		u.PendingUpgrade = &p
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Info("upgrade requested", zap.String("user_id", userID), zap.String("plan", string(plan)))
	return s.handoff.UpgradeLink(userID, plan), nil
}

// RequestWithdrawal validates the amount against the configured minimum and
// the current balance. Balance is settled outside the system.
func (s *Service) RequestWithdrawal(ctx context.Context, userID string, amount float64) (string, error) {
	err := s.mutate(ctx, userID, func(u *model.User, cfg model.Settings) error {
		if amount <= 0 || amount < cfg.MinWithdrawal {
			return ErrBelowMinimum
		}
		if amount > u.Balance {
			return ErrInsufficientBalance
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Info("withdrawal requested", zap.String("user_id", userID), zap.Float64("amount", amount))
	return s.handoff.WithdrawLink(userID, amount), nil
}

// ApplyPlan is the admin action that actually changes a user's plan.
func (s *Service) ApplyPlan(ctx context.Context, userID string, plan model.Plan) (*model.User, error) {
	plan, ok := model.ParsePlan(string(plan))
	if !ok {
		return nil, ErrInvalidPlan
	}
	var updated model.User
	err := s.mutate(ctx, userID, func(u *model.User, _ model.Settings) error {
		u.Plan = plan
		u.PendingUpgrade = nil
		updated = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("plan applied", zap.String("user_id", userID), zap.String("plan", string(plan)))
	return &updated, nil
}

func (s *Service) SetSuspended(ctx context.Context, userID string, suspended bool) (*model.User, error) {
	var updated model.User
	err := s.mutate(ctx, userID, func(u *model.User, _ model.Settings) error {
		u.IsSuspended = suspended
		updated = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("suspension changed", zap.String("user_id", userID), zap.Bool("suspended", suspended))
	return &updated, nil
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(u *model.User, cfg model.Settings) error) error {
	return s.store.Update(ctx, []string{storage.KeyUsers, storage.KeySettings}, func(tx *storage.Tx) error {
		u := tx.UserByID(userID)
		if u == nil {
			return ErrNotFound
		}
		return fn(u, tx.Settings)
	})
}
