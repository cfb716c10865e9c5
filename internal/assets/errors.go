package assets

import (
	"errors"
	"fmt"
	"net/http"

	"assetproxy/internal/provider"
)

// 校验错误的机器可读代码。
const (
	CodeMissingPublicID  = "MISSING_PUBLIC_ID"
	CodeInvalidPublicID  = "INVALID_PUBLIC_ID"
	CodeMissingPublicIDs = "MISSING_PUBLIC_IDS"
	CodeInvalidLimit     = "INVALID_LIMIT"
	CodeInvalidPage      = "INVALID_PAGE"
	CodeInvalidSort      = "INVALID_SORT"
	CodeInvalidCursor    = "INVALID_CURSOR"
	CodeInvalidUpload    = "INVALID_UPLOAD"
	CodeInvalidDays      = "INVALID_DAYS"
	CodePageOutOfRange   = "PAGE_OUT_OF_RANGE"
)

// ErrNotInitialized 表示服务缺少必要的依赖。
var ErrNotInitialized = errors.New("asset service not initialized")

// errNoAsset 表示远端上传成功返回但没有资源信息。
var errNoAsset = errors.New("provider returned no asset")

// ErrUsageUnavailable 与 provider.ErrUsageUnavailable 相同，便于上层直接判断。
var ErrUsageUnavailable = provider.ErrUsageUnavailable

// ValidationError 表示请求在访问远端之前即被拒绝。
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid 构造一个 ValidationError。
func Invalid(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ProviderError 包装远端调用失败，Context 为面向用户的描述，Err 保留上游信息。
type ProviderError struct {
	Op      string
	Context string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerError(op, context string, err error) error {
	return &ProviderError{Op: op, Context: context, Err: err}
}

// AsValidation 提取 ValidationError。
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// AsProvider 提取 ProviderError。
func AsProvider(err error) (*ProviderError, bool) {
	var p *ProviderError
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}

// MapHTTPStatus 将领域错误映射为 HTTP 状态码。
func MapHTTPStatus(err error) int {
	if _, ok := AsValidation(err); ok {
		return http.StatusBadRequest
	}
	if errors.Is(err, provider.ErrUnsupportedSource) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
