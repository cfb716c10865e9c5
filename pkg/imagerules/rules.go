// Package imagerules 定义上传前的图片校验规则，服务端与客户端共用。
package imagerules

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// DefaultMaxSize 是默认的单文件大小上限。
const DefaultMaxSize int64 = 10 * units.MiB

// DefaultAllowedTypes 是默认允许上传的 MIME 类型。
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

// File 描述待上传文件的元信息，不包含内容。
type File struct {
	Name string
	Type string
	Size int64
}

// Rules 是上传前校验的规则。
type Rules struct {
	AllowedTypes []string
	MaxSize      int64
}

// DefaultRules 返回默认规则。
func DefaultRules() Rules {
	return Rules{AllowedTypes: DefaultAllowedTypes, MaxSize: DefaultMaxSize}
}

// Validation 是校验结果。
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateImage 在本地同步校验文件类型与大小，不访问网络。
func ValidateImage(f File, rules Rules) Validation {
	allowed := rules.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	maxSize := rules.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	mimeType := strings.ToLower(strings.TrimSpace(f.Type))
	if mimeType == "" || !contains(allowed, mimeType) {
		return Validation{
			Error: fmt.Sprintf("Invalid file type. Allowed: %s", describeTypes(allowed)),
		}
	}
	if f.Size <= 0 {
		return Validation{Error: "File is empty"}
	}
	if f.Size > maxSize {
		return Validation{
			Error: fmt.Sprintf("File too large. Maximum size: %s", units.BytesSize(float64(maxSize))),
		}
	}
	return Validation{Valid: true}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func describeTypes(types []string) string {
	seen := make(map[string]struct{}, len(types))
	names := make([]string, 0, len(types))
	for _, t := range types {
		name := strings.ToUpper(strings.TrimPrefix(strings.ToLower(t), "image/"))
		if name == "JPG" {
			name = "JPEG"
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
