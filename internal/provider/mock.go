package provider

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"assetproxy/internal/search"
)

// MockProvider 是用于测试的内存实现，行为可通过导出字段配置。
type MockProvider struct {
	mu     sync.Mutex
	assets map[string]Asset

	// 以下字段非空时覆盖默认行为
	PingErr      error
	SearchErr    error
	SearchFunc   func(q search.Query) (*SearchResult, error)
	DeleteFunc   func(batch []string) (map[string]string, error)
	DestroyFunc  func(publicID string) (string, error)
	UploadFunc   func(req UploadRequest) (*Asset, error)
	UsageResult  *Usage
	UsageErr     error
	FoldersValue []Folder

	// 调用记录，供断言使用
	Queries      []search.Query
	DeleteCalls  [][]string
	DestroyCalls []string
	Uploads      []UploadRequest
}

// NewMockProvider 创建空的 MockProvider。
func NewMockProvider() *MockProvider {
	return &MockProvider{assets: make(map[string]Asset)}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingErr
}

// Search 默认按 Window 语义检索已登记的资源。
func (m *MockProvider) Search(ctx context.Context, q search.Query) (*SearchResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, q)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if m.SearchFunc != nil {
		return m.SearchFunc(q)
	}
	return Window(m.inFolder(q.Folder), q)
}

func (m *MockProvider) Destroy(ctx context.Context, publicID string) (string, error) {
	m.mu.Lock()
	m.DestroyCalls = append(m.DestroyCalls, publicID)
	m.mu.Unlock()

	if m.DestroyFunc != nil {
		return m.DestroyFunc(publicID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[publicID]; !ok {
		return DestroyNotFound, nil
	}
	delete(m.assets, publicID)
	return DestroyOK, nil
}

func (m *MockProvider) DeleteAssets(ctx context.Context, publicIDs []string) (map[string]string, error) {
	batch := append([]string(nil), publicIDs...)
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, batch)
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		return m.DeleteFunc(batch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(batch))
	for _, id := range batch {
		if _, ok := m.assets[id]; ok {
			delete(m.assets, id)
			out[id] = StatusDeleted
		} else {
			out[id] = StatusNotFound
		}
	}
	return out, nil
}

func (m *MockProvider) Usage(ctx context.Context) (*Usage, error) {
	if m.UsageErr != nil {
		return nil, m.UsageErr
	}
	if m.UsageResult == nil {
		return nil, ErrUsageUnavailable
	}
	return m.UsageResult, nil
}

func (m *MockProvider) RootFolders(ctx context.Context) ([]Folder, error) {
	return m.FoldersValue, nil
}

func (m *MockProvider) Upload(ctx context.Context, req UploadRequest) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads = append(m.Uploads, req)
	if m.UploadFunc != nil {
		return m.UploadFunc(req)
	}

	name := req.Filename
	if name == "" {
		name = fmt.Sprintf("upload_%d", len(m.Uploads))
	}
	asset := Asset{
		PublicID:  path.Join(req.Folder, name),
		Filename:  name,
		Folder:    req.Folder,
		CreatedAt: time.Now().UTC(),
	}
	m.assets[asset.PublicID] = asset
	return &asset, nil
}

// SetAssets 预置资源。
func (m *MockProvider) SetAssets(assets ...Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range assets {
		m.assets[a.PublicID] = a
	}
}

// Has 判断资源是否仍存在。
func (m *MockProvider) Has(publicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assets[publicID]
	return ok
}

func (m *MockProvider) inFolder(folder string) []Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Asset, 0, len(m.assets))
	for _, a := range m.assets {
		if folder == "" || a.Folder == folder || strings.HasPrefix(a.Folder, folder+"/") {
			out = append(out, a)
		}
	}
	return out
}

// 编译期检查
var _ Provider = (*MockProvider)(nil)
