package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	appvalidation "github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/validation"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/transport/http/middleware"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

type LinksHandler struct {
	svc *links.Service
}

func NewLinksHandler(svc *links.Service) *LinksHandler {
	return &LinksHandler{svc: svc}
}

type createLinkRequest struct {
	URL string `json:"url" validate:"required,notblank,http_url"`
}

type linkResponse struct {
	ID          string    `json:"id"`
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	Clicks      int64     `json:"clicks"`
	Earnings    float64   `json:"earnings"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *LinksHandler) toResponse(l model.Link) linkResponse {
	return linkResponse{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		ShortURL:    h.svc.ShortURL(l.ShortCode),
		OriginalURL: l.OriginalURL,
		Clicks:      l.Clicks,
		Earnings:    l.Earnings,
		OwnerID:     l.UserID,
		CreatedAt:   l.CreatedAt,
	}
}

func (h *LinksHandler) toResponses(ls []model.Link) []linkResponse {
	out := make([]linkResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, h.toResponse(l))
	}
	return out
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req createLinkRequest
	if !decodeAndValidate(w, r, &req, fieldErrors{"url": constants.ErrInvalidURL}) {
		return
	}

	link, err := h.svc.CreateLink(r.Context(), links.CreateLinkInput{
		OwnerID: user.ID,
		URL:     req.URL,
		Channel: links.ChannelForm,
	})
	if err != nil {
		switch {
		case errors.Is(err, links.ErrInvalidURL):
			httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
		case errors.Is(err, links.ErrQuotaExceeded):
			httputils.WriteAPIError(w, r, constants.ErrQuotaExceeded)
		case errors.Is(err, links.ErrOwnerBlocked):
			httputils.WriteAPIError(w, r, constants.ErrAccountSuspended)
		case errors.Is(err, links.ErrOwnerNotFound):
			httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
		default:
			logger.Error("failed to create link", zap.Error(err), zap.String("user_id", user.ID))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkCreated, h.toResponse(*link))
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksFound, h.toResponses(h.svc.ListByOwner(r.Context(), user.ID)))
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	h.delete(w, r, user.ID)
}

// AdminDelete removes any link regardless of owner.
func (h *LinksHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, "")
}

func (h *LinksHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksFound, h.toResponses(h.svc.ListAll(r.Context())))
}

func (h *LinksHandler) delete(w http.ResponseWriter, r *http.Request, ownerID string) {
	id := r.PathValue("id")
	if err := h.svc.DeleteLink(r.Context(), id, ownerID); err != nil {
		if errors.Is(err, links.ErrNotFound) {
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
			return
		}
		logger.Error("failed to delete link", zap.Error(err), zap.String("link_id", id))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkDeleted, map[string]string{"id": id})
}

// ownedLink resolves code and hides links the caller may not see.
func (h *LinksHandler) ownedLink(w http.ResponseWriter, r *http.Request, code string) (*model.Link, bool) {
	user, _ := middleware.UserFromContext(r.Context())

	link, err := h.svc.FindByShortCode(r.Context(), code)
	if err != nil || (!user.IsAdmin() && link.UserID != user.ID) {
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		return nil, false
	}
	return link, true
}

type statsResponse struct {
	ShortCode string             `json:"shortCode"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Daily     []links.DailyCount `json:"daily"`
}

type statsQueryParams struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

func (h *LinksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if err := appvalidation.Validate(statsQueryParams{From: fromRaw, To: toRaw}); err != nil {
		apiErr := constants.ErrInvalidRange
		if f := appvalidation.Failures(err); len(f) > 0 {
			if f[0].Tag == "required" {
				apiErr = apiErr.WithMessage("from and to are required (YYYY-MM-DD)")
			} else {
				apiErr = apiErr.WithMessage("invalid " + f[0].Field + " (YYYY-MM-DD)")
			}
		}
		httputils.WriteAPIError(w, r, apiErr)
		return
	}

	// Formats were checked above.
	from, _ := time.Parse(time.DateOnly, fromRaw)
	to, _ := time.Parse(time.DateOnly, toRaw)

	if _, ok := h.ownedLink(w, r, code); !ok {
		return
	}

	daily, err := h.svc.GetStats(r.Context(), code, from, to)
	if err != nil {
		switch {
		case errors.Is(err, links.ErrNotFound):
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
		case errors.Is(err, links.ErrInvalidRange):
			httputils.WriteAPIError(w, r, constants.ErrInvalidRange.WithMessage("from must be <= to"))
		default:
			logger.Error("failed to fetch stats", zap.Error(err), zap.String("code", code))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessStatsFound, statsResponse{
		ShortCode: code,
		From:      from.Format(time.DateOnly),
		To:        to.Format(time.DateOnly),
		Daily:     daily,
	})
}

func (h *LinksHandler) QR(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if _, ok := h.ownedLink(w, r, code); !ok {
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.svc.QRCode(r.Context(), code, size)
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
			return
		}
		logger.Error("failed to render qr code", zap.Error(err), zap.String("code", code))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		logger.Warn("failed to write qr code", zap.Error(err))
	}
}
