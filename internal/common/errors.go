package common

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation    ErrorCode = "validation"
	ErrorCodeUnauthorized  ErrorCode = "unauthorized"
	ErrorCodeForbidden     ErrorCode = "forbidden"
	ErrorCodeConflict      ErrorCode = "conflict"
	ErrorCodeNotFound      ErrorCode = "not_found"
	ErrorCodeQuotaExceeded ErrorCode = "quota_exceeded"
	ErrorCodeInternal      ErrorCode = "internal"
)

// 对外业务错误码（随 HTTP 错误体的 code 字段返回，调用方据此分支）
const (
	BizCodeInviteRequired    = "INVITE_REQUIRED"
	BizCodeInvalidInviteCode = "INVALID_INVITE_CODE"
	BizCodeQuotaExceeded     = "QUOTA_EXCEEDED"
)

type ServiceError struct {
	Code    ErrorCode
	BizCode string // 可选，例如 INVALID_INVITE_CODE
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func NewServiceError(code ErrorCode, message string) error {
	return &ServiceError{Code: code, Message: message}
}

// NewBizError 构造带业务错误码的服务错误。
func NewBizError(code ErrorCode, bizCode string, message string) error {
	return &ServiceError{Code: code, BizCode: bizCode, Message: message}
}

func NewValidationError(message string) error {
	return NewServiceError(ErrorCodeValidation, message)
}

func NewUnauthorizedError(message string) error {
	return NewServiceError(ErrorCodeUnauthorized, message)
}

func NewForbiddenError(message string) error {
	return NewServiceError(ErrorCodeForbidden, message)
}

func NewConflictError(message string) error {
	return NewServiceError(ErrorCodeConflict, message)
}

func NewNotFoundError(message string) error {
	return NewServiceError(ErrorCodeNotFound, message)
}

func NewQuotaExceededError(message string) error {
	return NewBizError(ErrorCodeQuotaExceeded, BizCodeQuotaExceeded, message)
}

func NewInternalError(message string) error {
	return NewServiceError(ErrorCodeInternal, message)
}

func AsServiceError(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}
