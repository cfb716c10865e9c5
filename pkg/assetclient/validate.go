package assetclient

import "assetproxy/pkg/imagerules"

// 上传校验与服务端使用同一套规则，这里仅做转出。
type (
	File       = imagerules.File
	Rules      = imagerules.Rules
	Validation = imagerules.Validation
)

// DefaultMaxSize 是默认的单文件大小上限。
const DefaultMaxSize = imagerules.DefaultMaxSize

// DefaultAllowedTypes 是默认允许上传的 MIME 类型。
var DefaultAllowedTypes = imagerules.DefaultAllowedTypes

// DefaultRules 返回默认规则。
func DefaultRules() Rules { return imagerules.DefaultRules() }

// ValidateImage 在本地同步校验文件类型与大小，不访问网络。
func ValidateImage(f File, rules Rules) Validation { return imagerules.ValidateImage(f, rules) }
