package provider

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// ErrUnsupportedSource 表示后端无法处理该上传来源（例如远程 URL）。
var ErrUnsupportedSource = errors.New("provider: unsupported upload source")

// ParseDataURI 解析 base64 编码的 data URI，返回 MIME 类型与内容。
// 非 data: 开头的来源返回 ErrUnsupportedSource，未声明类型时按 RFC 2397 视为 text/plain。
func ParseDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrUnsupportedSource
	}
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w", err)
	}
	if du.Encoding != dataurl.EncodingBase64 {
		return "", nil, fmt.Errorf("data uri must be base64 encoded")
	}
	return du.ContentType(), du.Data, nil
}

// ExtensionFor 返回 MIME 类型对应的常用扩展名（不含点）。
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}
