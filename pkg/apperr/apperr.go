// Package apperr 定义带分类的业务错误，并负责映射为 HTTP 状态码与 gRPC 状态码
package apperr

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind 错误分类
type Kind int

const (
	// KindInternal 未分类错误（存储、网络等）
	KindInternal Kind = iota
	// KindValidation 入参不合法，在读取任何状态之前被拒绝
	KindValidation
	// KindPrecondition 余额、状态、自成交、价格不匹配等前置条件不满足
	KindPrecondition
	// KindArithmetic 溢出、下溢、除零
	KindArithmetic
	// KindAuthorization 调用方无权操作
	KindAuthorization
	// KindNotFound 记录不存在
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindArithmetic:
		return "arithmetic"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error 业务错误，作为哨兵值使用，通过 errors.Is 比较
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// New 创建业务错误
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf 返回错误链中第一个业务错误的分类
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf 返回错误码，非业务错误返回 Internal
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "Internal"
}

// HTTPStatus 映射 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindPrecondition:
		return http.StatusConflict
	case KindArithmetic:
		return http.StatusUnprocessableEntity
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode 映射 gRPC 状态码
func GRPCCode(err error) codes.Code {
	switch KindOf(err) {
	case KindValidation:
		return codes.InvalidArgument
	case KindPrecondition:
		return codes.FailedPrecondition
	case KindArithmetic:
		return codes.OutOfRange
	case KindAuthorization:
		return codes.PermissionDenied
	case KindNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// GRPCStatus 将错误转换为 gRPC status error，内部错误不透出细节
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && KindOf(err) == KindInternal {
		return err
	}
	code := GRPCCode(err)
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, CodeOf(err)+": "+err.Error())
}
