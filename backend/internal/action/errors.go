package action

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"community-service/backend/internal/repo"
)

// Kind classifies a failed action.
type Kind string

const (
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindAlreadyOwned      Kind = "ALREADY_OWNED"
	KindNotOwned          Kind = "NOT_OWNED"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindUnavailable       Kind = "UNAVAILABLE"
	KindInternal          Kind = "INTERNAL"
)

var kindStatus = map[Kind]int{
	KindUnauthenticated:   http.StatusUnauthorized,
	KindInvalidArgument:   http.StatusBadRequest,
	KindNotFound:          http.StatusNotFound,
	KindConflict:          http.StatusConflict,
	KindAlreadyOwned:      http.StatusConflict,
	KindNotOwned:          http.StatusForbidden,
	KindInsufficientFunds: http.StatusPaymentRequired,
	KindUnavailable:       http.StatusServiceUnavailable,
	KindInternal:          http.StatusInternalServerError,
}

func (k Kind) HTTPStatus() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is the only error type actions return. Code carries the procedure's
// rejection code when there is one.
type Error struct {
	Kind    Kind
	Message string
	Code    string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

func NewError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

var errUnauthenticated = NewError(KindUnauthenticated, "login required")

// AsError returns err as an *Error, classifying anything foreign as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(KindInternal, "something went wrong, please try again")
}

var procedureKinds = map[string]Kind{
	repo.CodeInsufficientFunds: KindInsufficientFunds,
	repo.CodeAlreadyOwned:      KindAlreadyOwned,
	repo.CodeBadgeNotFound:     KindNotFound,
	repo.CodeProfileNotFound:   KindNotFound,
	repo.CodeTargetNotFound:    KindNotFound,
	repo.CodeSelfFollow:        KindInvalidArgument,
}

// fail translates a persistence error at the action boundary and logs it.
// Business rejections keep the procedure's message verbatim; infrastructure
// failures get a generic message.
func (s *Service) fail(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var pe *repo.ProcedureError
	if errors.As(err, &pe) {
		kind, ok := procedureKinds[pe.Code]
		if !ok {
			kind = KindConflict
		}
		s.log.Info("action rejected", zap.String("op", op), zap.String("code", pe.Code), zap.String("message", pe.Message))
		return &Error{Kind: kind, Message: pe.Message, Code: pe.Code}
	}

	if errors.Is(err, repo.ErrNotFound) {
		s.log.Info("action target missing", zap.String("op", op), zap.Error(err))
		return NewError(KindNotFound, "not found")
	}

	if isTransient(err) {
		s.log.Warn("action failed on transient error", zap.String("op", op), zap.Error(err))
		return NewError(KindUnavailable, "service temporarily unavailable, please try again")
	}

	s.log.Error("action failed", zap.String("op", op), zap.Error(err))
	return AsError(err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
