package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/texnomart-dev/storefront-backend/api/responses"
	"github.com/texnomart-dev/storefront-backend/api/validators"
	messagesvc "github.com/texnomart-dev/storefront-backend/internal/messages"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/logger"
)

type contactMessageRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone"`
	Subject *string `json:"subject"`
	Message string  `json:"message" validate:"required"`
}

type contactMessageResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     *string    `json:"phone,omitempty"`
	Subject   *string    `json:"subject,omitempty"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newContactMessageResponse(msg *models.ContactMessage) contactMessageResponse {
	if msg == nil {
		return contactMessageResponse{}
	}
	return contactMessageResponse{
		ID:        msg.ID,
		Name:      msg.Name,
		Email:     msg.Email,
		Phone:     msg.Phone,
		Subject:   msg.Subject,
		Message:   msg.Message,
		Status:    msg.Status.String(),
		ReadAt:    msg.ReadAt,
		RepliedAt: msg.RepliedAt,
		CreatedAt: msg.CreatedAt,
	}
}

// ContactMessageCreate accepts a public contact form submission.
func ContactMessageCreate(svc messagesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}

		var payload contactMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), messagesvc.CreateInput{
			Name:    payload.Name,
			Email:   payload.Email,
			Phone:   payload.Phone,
			Subject: payload.Subject,
			Message: payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newContactMessageResponse(created))
	}
}

// AdminMessageList returns contact messages, optionally filtered by status.
func AdminMessageList(svc messagesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}

		var status *enums.MessageStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseMessageStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		rows, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]contactMessageResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newContactMessageResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type updateMessageStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminMessageUpdateStatus moves a contact message through its inbox states.
func AdminMessageUpdateStatus(svc messagesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message id"))
			return
		}

		var payload updateMessageStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseMessageStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		if err := svc.UpdateStatus(r.Context(), messageID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": status.String()})
	}
}

// AdminMessageDelete removes a contact message.
func AdminMessageDelete(svc messagesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message service unavailable"))
			return
		}

		messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid message id"))
			return
		}

		if err := svc.Delete(r.Context(), messageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
