package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"go.uber.org/zap"
)

var (
	ErrParam = errors.New("api & url required")
	ErrAuth  = errors.New("invalid api token")
	ErrQuota = errors.New("plan limit reached")

	// Refinements callers may report differently; they still match ErrAuth
	// and ErrParam.
	ErrSuspended = fmt.Errorf("%w: account suspended", ErrAuth)
	ErrBadURL    = fmt.Errorf("%w: url must be an absolute http(s) url", ErrParam)
)

type UserLookup interface {
	ByAPIKey(ctx context.Context, key string) (*model.User, error)
}

type LinkCreator interface {
	CreateLink(ctx context.Context, in links.CreateLinkInput) (*model.Link, error)
	ShortURL(code string) string
}

type Service struct {
	users UserLookup
	links LinkCreator
}

func NewService(users UserLookup, links LinkCreator) *Service {
	return &Service{users: users, links: links}
}

// CreateLinkViaToken is the programmatic creation path. Parameters are checked
// before the token so a malformed call never reveals whether a token exists.
func (s *Service) CreateLinkViaToken(ctx context.Context, token, rawURL string) (string, error) {
	token = strings.TrimSpace(token)
	rawURL = strings.TrimSpace(rawURL)
	if token == "" || rawURL == "" {
		return "", ErrParam
	}

	user, err := s.users.ByAPIKey(ctx, token)
	if err != nil || user == nil {
		return "", ErrAuth
	}

	link, err := s.links.CreateLink(ctx, links.CreateLinkInput{
		OwnerID: user.ID,
		URL:     rawURL,
		Channel: links.ChannelAPI,
	})
	switch {
	case err == nil:
	case errors.Is(err, links.ErrQuotaExceeded):
		return "", ErrQuota
	case errors.Is(err, links.ErrOwnerBlocked):
		return "", ErrSuspended
	case errors.Is(err, links.ErrOwnerNotFound):
		return "", ErrAuth
	case errors.Is(err, links.ErrInvalidURL):
		return "", ErrBadURL
	default:
		logger.Error("gateway link creation failed", zap.Error(err), zap.String("user_id", user.ID))
		return "", err
	}

	return s.links.ShortURL(link.ShortCode), nil
}
