package provider

import (
	"context"
	"errors"
	"time"

	"assetproxy/internal/search"
)

// 远端删除接口返回的单个资源状态。
const (
	StatusDeleted  = "deleted"
	StatusNotFound = "not_found"
)

// 单个资源销毁（destroy）返回的结果。
const (
	DestroyOK       = "ok"
	DestroyNotFound = "not found"
)

// ErrUsageUnavailable 表示存储后端不提供账户用量（或当前套餐无权限）。
var ErrUsageUnavailable = errors.New("provider: account usage unavailable")

// Provider 定义远端媒体存储的最小能力集合。
type Provider interface {
	// Name 返回后端名称，用于日志与指标。
	Name() string
	// Ping 检查远端是否可达。
	Ping(ctx context.Context) error
	// Search 执行一次检索，结果条数不超过 q.MaxResults。
	Search(ctx context.Context, q search.Query) (*SearchResult, error)
	// Destroy 删除单个资源，返回远端状态（"ok"、"not found" 或其他）。
	Destroy(ctx context.Context, publicID string) (string, error)
	// DeleteAssets 批量删除，返回 publicID -> 状态。
	DeleteAssets(ctx context.Context, publicIDs []string) (map[string]string, error)
	// Usage 返回账户级用量，不支持时返回 ErrUsageUnavailable。
	Usage(ctx context.Context) (*Usage, error)
	// RootFolders 列出顶层文件夹。
	RootFolders(ctx context.Context) ([]Folder, error)
	// Upload 上传单个资源（data URI 或远程 URL）。
	Upload(ctx context.Context, req UploadRequest) (*Asset, error)
}

// Asset 是远端返回的原始资源。可缺省的字段使用指针或空值表示缺失。
type Asset struct {
	PublicID  string
	Filename  string
	Format    string
	Width     *int
	Height    *int
	Bytes     int64
	CreatedAt time.Time
	Folder    string
	SecureURL string
	URL       string
	Tags      []string
	Context   map[string]any
	Metadata  map[string]any
}

// SearchResult 是远端检索的游标式结果。
type SearchResult struct {
	Assets     []Asset
	TotalCount int
	NextCursor string
}

// Quota 描述某一项用量及其上限。
type Quota struct {
	Usage       float64 `json:"usage"`
	Limit       float64 `json:"limit,omitempty"`
	UsedPercent float64 `json:"used_percent,omitempty"`
}

// Usage 是账户级用量信息。
type Usage struct {
	Plan      string `json:"plan"`
	Credits   *Quota `json:"credits,omitempty"`
	Bandwidth *Quota `json:"bandwidth,omitempty"`
	Storage   *Quota `json:"storage,omitempty"`
	Resources int64  `json:"resources,omitempty"`
}

// Folder 是一个顶层文件夹。
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// UploadRequest 描述一次上传。
type UploadRequest struct {
	// File 为 data URI（data:image/png;base64,...）或 http(s) URL。
	File     string
	Folder   string
	Filename string
}

// OptionalInt 将 0 视为缺失。
func OptionalInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
