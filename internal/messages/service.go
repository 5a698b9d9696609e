package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
)

type messageRepo interface {
	Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	List(ctx context.Context, status *enums.MessageStatus) ([]models.ContactMessage, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MessageStatus, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries a contact form submission.
type CreateInput struct {
	Name    string
	Email   string
	Phone   *string
	Subject *string
	Message string
}

// Service handles the contact form and its operator-side inbox.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ContactMessage, error)
	List(ctx context.Context, status *enums.MessageStatus) ([]models.ContactMessage, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MessageStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo messageRepo
	now  func() time.Time
}

// NewService builds a contact message service.
func NewService(repo messageRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("message repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	body := strings.TrimSpace(input.Message)
	if name == "" || email == "" || body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and message are required")
	}

	msg := &models.ContactMessage{
		ID:      uuid.New(),
		Name:    name,
		Email:   email,
		Phone:   trimOptional(input.Phone),
		Subject: trimOptional(input.Subject),
		Message: body,
		Status:  enums.MessageStatusNew,
	}
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save contact message")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, status *enums.MessageStatus) ([]models.ContactMessage, error) {
	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact messages")
	}
	return rows, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MessageStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid message status")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update message status")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete contact message")
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
