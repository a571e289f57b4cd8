package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/chat"
	"github.com/spec-kit/support-portal/internal/locale"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/ticket"
	"github.com/spec-kit/support-portal/internal/tracking"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// Codes for flow errors that have no backend counterpart.
const (
	CodeInvalidState       = "INVALID_STATE"
	CodeAttachmentTooLarge = "ATTACHMENT_TOO_LARGE"
	CodeChatBusy           = "CHAT_BUSY"
	CodeAlreadyRated       = "ALREADY_RATED"
	CodeNotRateable        = "NOT_RATEABLE"
)

// MapError converts controller errors into DomainErrors. printer localizes the
// per-field validation messages.
func MapError(err error, printer *locale.Printer) *apperrors.DomainError {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := apperrors.CodeInternal
		switch {
		case fiberErr.Code == http.StatusNotFound:
			code = apperrors.CodeNotFound
		case fiberErr.Code == http.StatusRequestEntityTooLarge:
			code = CodeAttachmentTooLarge
		case fiberErr.Code < 500:
			code = apperrors.CodeValidation
		}
		return &apperrors.DomainError{Code: code, Message: fiberErr.Message, HTTPStatus: fiberErr.Code, Err: err}
	}

	var validationErr *ticket.ValidationError
	if errors.As(err, &validationErr) {
		fields := make(map[string]any, len(validationErr.Fields))
		message := "invalid input"
		for i, f := range validationErr.Fields {
			fields[f.Field] = printer.Field(f.Field, f.Rule, f.Param)
			if i == 0 {
				message = fields[f.Field].(string)
			}
		}
		return &apperrors.DomainError{Code: apperrors.CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Details: fields, Err: err}
	}

	switch {
	case errors.Is(err, ticket.ErrVerificationInFlight),
		errors.Is(err, ticket.ErrInvalidState),
		errors.Is(err, ticket.ErrCancelled):
		return wrap(CodeInvalidState, http.StatusConflict, err)
	case errors.Is(err, tracking.ErrAlreadyRated):
		return wrap(CodeAlreadyRated, http.StatusConflict, err)
	case errors.Is(err, tracking.ErrNotRateable):
		return wrap(CodeNotRateable, http.StatusConflict, err)
	case errors.Is(err, tracking.ErrInvalidPhone),
		errors.Is(err, tracking.ErrInvalidCode),
		errors.Is(err, chat.ErrEmptyQuestion):
		return wrap(apperrors.CodeValidation, http.StatusBadRequest, err)
	case errors.Is(err, chat.ErrBusy):
		return wrap(CodeChatBusy, http.StatusConflict, err)
	case errors.Is(err, store.ErrAttachmentTooLarge):
		return wrap(CodeAttachmentTooLarge, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, context.DeadlineExceeded):
		return wrap(apperrors.CodeTimeout, http.StatusGatewayTimeout, err)
	}
	return apperrors.ToDomainError(err)
}

func wrap(code string, status int, err error) *apperrors.DomainError {
	return &apperrors.DomainError{Code: code, Message: err.Error(), HTTPStatus: status, Err: err}
}
