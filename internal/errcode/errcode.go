package errcode

import (
	"context"
	"errors"
	"net/http"
)

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如资源缺失但流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)

// Error kinds returned by the core. Wrap them with fmt.Errorf("...: %w", ErrX)
// and test with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrDuplicateAccount = errors.New("duplicate account")
	ErrValidation       = errors.New("validation error")
	ErrUnauthenticated  = errors.New("no active account")
	ErrNoActiveResume   = errors.New("no resume open in the editor")
)

// HTTPStatus maps an error kind to the status the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIndexOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNoActiveResume):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Code maps an error kind to the numeric code carried in notifications.
func Code(err error) int {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrNotFound):
		return ResourceMissing
	default:
		return SystemError
	}
}
