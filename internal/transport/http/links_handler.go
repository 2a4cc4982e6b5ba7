package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ysalameh/paywatch/internal/constants"
	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	appvalidation "github.com/ysalameh/paywatch/internal/infrastructure/validation"
	"github.com/ysalameh/paywatch/internal/processing/paylinks"
	"github.com/ysalameh/paywatch/internal/transport/http/middleware"
	"github.com/ysalameh/paywatch/pkg/httputils"
	"go.uber.org/zap"
)

type LinksHandler struct {
	svc *paylinks.Service
}

func NewLinksHandler(svc *paylinks.Service) *LinksHandler {
	return &LinksHandler{svc: svc}
}

type createLinkRequest struct {
	URL         string `json:"url" validate:"required,notblank,http_url"`
	AmountMinor int64  `json:"amountMinor" validate:"required,gt=0"`
}

type renewLinkRequest struct {
	URL string `json:"url" validate:"required,notblank,http_url"`
}

type linkResponse struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	AmountMinor    int64      `json:"amountMinor"`
	Status         string     `json:"status"`
	ErrorCode      string     `json:"errorCode,omitempty"`
	TransactionRef string     `json:"transactionRef,omitempty"`
	AmountDisplay  string     `json:"amountDisplay,omitempty"`
	Archived       bool       `json:"archived"`
	LastCheckedAt  *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func mapLink(link *paylinks.Link) linkResponse {
	resp := linkResponse{
		ID:             link.ID,
		URL:            link.URL,
		AmountMinor:    link.AmountMinor,
		Status:         string(link.Status),
		ErrorCode:      link.ErrorCode,
		TransactionRef: link.TransactionRef,
		AmountDisplay:  link.AmountDisplay,
		Archived:       link.Archived,
		CreatedAt:      link.CreatedAt,
	}
	if !link.LastCheckedAt.IsZero() {
		checked := link.LastCheckedAt
		resp.LastCheckedAt = &checked
	}
	return resp
}

func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
		return "", false
	}
	return owner, true
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		apiErr := constants.ErrInvalidRequestBody
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, e := range validationErrs {
				if e.Field() == "url" {
					apiErr = constants.ErrInvalidURL
					break
				}
				if e.Field() == "amountMinor" {
					apiErr = constants.ErrInvalidAmount
					break
				}
			}
		}
		httputils.WriteAPIError(w, r, apiErr)
		return
	}

	link, err := h.svc.CreateLink(r.Context(), paylinks.CreateLinkInput{
		OwnerID:     owner,
		URL:         req.URL,
		AmountMinor: req.AmountMinor,
	})
	if err != nil {
		switch {
		case errors.Is(err, paylinks.ErrInvalidURL):
			httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
		case errors.Is(err, paylinks.ErrInvalidAmount):
			httputils.WriteAPIError(w, r, constants.ErrInvalidAmount)
		default:
			logger.Error("failed to create link", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkCreated, mapLink(link))
}

func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	links, err := h.svc.ListLinks(r.Context(), owner)
	if err != nil {
		logger.Error("failed to list links", zap.Error(err), zap.String("owner_id", owner))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	out := make([]linkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, mapLink(link))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksFound, out)
}

func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	link, err := h.svc.GetLink(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		h.writeLinkError(w, r, err, "failed to get link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkFound, mapLink(link))
}

func (h *LinksHandler) Renew(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req renewLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return
	}
	if err := appvalidation.Validate(req); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
		return
	}

	link, err := h.svc.RenewLink(r.Context(), owner, r.PathValue("id"), req.URL)
	if err != nil {
		if errors.Is(err, paylinks.ErrInvalidURL) {
			httputils.WriteAPIError(w, r, constants.ErrInvalidURL)
			return
		}
		h.writeLinkError(w, r, err, "failed to renew link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkRenewed, mapLink(link))
}

func (h *LinksHandler) Archive(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	link, err := h.svc.ArchiveLink(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		h.writeLinkError(w, r, err, "failed to archive link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkArchived, mapLink(link))
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteLink(r.Context(), owner, r.PathValue("id")); err != nil {
		h.writeLinkError(w, r, err, "failed to delete link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkDeleted, nil)
}

// Check probes one link immediately, outside the reconciliation cadence.
// CRUD collaborators call it right after a create or renew.
func (h *LinksHandler) Check(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	link, err := h.svc.CheckNow(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, paylinks.ErrArchived) {
			httputils.WriteAPIError(w, r, constants.ErrLinkArchived)
			return
		}
		h.writeLinkError(w, r, err, "failed to check link")
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLinkChecked, mapLink(link))
}

func (h *LinksHandler) writeLinkError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, paylinks.ErrNotFound):
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
	case errors.Is(err, paylinks.ErrNotOwner):
		httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
	default:
		logger.Error(logMsg, zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}
