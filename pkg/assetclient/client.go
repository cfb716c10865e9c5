// Package assetclient 是资源代理的 HTTP 客户端。所有方法都不返回 error，
// 网络、解码与服务端错误统一体现在响应的 Outcome 中。
package assetclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 32 << 20

// Client 调用资源代理的各个端点。
type Client struct {
	baseURL string
	http    *http.Client
	latest  Latest
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 使用自定义的 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout 设置单次请求超时。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListParams 是列表查询参数，零值字段不发送。
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Folder string
	SortBy string
	Order  string
	Cursor string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	setInt(q, "page", p.Page)
	setInt(q, "limit", p.Limit)
	setString(q, "search", p.Search)
	setString(q, "folder", p.Folder)
	setString(q, "sort_by", p.SortBy)
	setString(q, "order", p.Order)
	setString(q, "cursor", p.Cursor)
	return q
}

// ListImages 分页列出资源。
func (c *Client) ListImages(ctx context.Context, p ListParams) *ImagesResponse {
	out := &ImagesResponse{}
	c.do(ctx, http.MethodGet, "/cloudinary/images", p.values(), nil, out)
	return out
}

// SearchLatest 与 ListImages 相同，但新的调用会取消仍在进行的旧调用；
// 第二个返回值为 false 表示本次结果已被更新的请求取代，应丢弃。
func (c *Client) SearchLatest(ctx context.Context, p ListParams) (*ImagesResponse, bool) {
	rctx, ticket := c.latest.Begin(ctx)
	defer ticket.Done()

	resp := c.ListImages(rctx, p)
	if !ticket.IsLatest() {
		return nil, false
	}
	return resp, true
}

// Stats 获取文件夹统计。
func (c *Client) Stats(ctx context.Context, folder string) *StatsResponse {
	q := url.Values{}
	setString(q, "folder", folder)
	out := &StatsResponse{}
	c.do(ctx, http.MethodGet, "/cloudinary/stats", q, nil, out)
	return out
}

// DeleteImage 删除单个资源。
func (c *Client) DeleteImage(ctx context.Context, publicID string) *DeleteResponse {
	out := &DeleteResponse{}
	c.do(ctx, http.MethodDelete, "/cloudinary/delete", nil, map[string]string{"public_id": publicID}, out)
	return out
}

// DeleteImages 批量删除。
func (c *Client) DeleteImages(ctx context.Context, publicIDs []string) *DeleteManyResponse {
	out := &DeleteManyResponse{}
	if publicIDs == nil {
		publicIDs = []string{}
	}
	c.do(ctx, http.MethodPost, "/cloudinary/delete-multiple", nil, map[string][]string{"public_ids": publicIDs}, out)
	return out
}

// Health 检查代理与远端存储的连通性。
func (c *Client) Health(ctx context.Context) *HealthResponse {
	out := &HealthResponse{}
	c.do(ctx, http.MethodGet, "/cloudinary/health", nil, nil, out)
	return out
}

// Ping 只检查代理本身是否存活。
func (c *Client) Ping(ctx context.Context) *HealthResponse {
	out := &HealthResponse{}
	c.do(ctx, http.MethodGet, "/health", nil, nil, out)
	return out
}

// Folders 列出顶层文件夹。
func (c *Client) Folders(ctx context.Context) *FoldersResponse {
	out := &FoldersResponse{}
	c.do(ctx, http.MethodGet, "/cloudinary/folders", nil, nil, out)
	return out
}

// OldImagesParams 是旧图片查询参数。
type OldImagesParams struct {
	Folder        string
	OlderThanDays int
	Limit         int
}

// OldImages 列出早于阈值的资源。
func (c *Client) OldImages(ctx context.Context, p OldImagesParams) *OldImagesResponse {
	q := url.Values{}
	setString(q, "folder", p.Folder)
	setInt(q, "older_than_days", p.OlderThanDays)
	setInt(q, "limit", p.Limit)
	out := &OldImagesResponse{}
	c.do(ctx, http.MethodGet, "/cloudinary/old-images", q, nil, out)
	return out
}

// UploadParams 描述一次上传，Image 为 data URI 或 http(s) URL。
type UploadParams struct {
	Image    string `json:"image"`
	Folder   string `json:"folder,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Upload 通过代理上传。
func (c *Client) Upload(ctx context.Context, p UploadParams) *UploadResponse {
	out := &UploadResponse{}
	c.do(ctx, http.MethodPost, "/cloudinary/upload", nil, p, out)
	return out
}

// Deletions 列出最近的删除审计记录。
func (c *Client) Deletions(ctx context.Context, limit int) *DeletionsResponse {
	q := url.Values{}
	setInt(q, "limit", limit)
	out := &DeletionsResponse{}
	c.do(ctx, http.MethodGet, "/cloudinary/deletions", q, nil, out)
	return out
}

type result interface {
	outcome() *Outcome
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out result) {
	o := out.outcome()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			o.fail(fmt.Sprintf("encode request: %v", err))
			return
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		o.fail(fmt.Sprintf("build request: %v", err))
		return
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		o.fail(fmt.Sprintf("network error: %v", err))
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		o.fail(fmt.Sprintf("read response: %v", err))
		return
	}

	if err := json.Unmarshal(data, out); err != nil {
		o.fail(fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode))
		o.StatusCode = resp.StatusCode
		return
	}

	o.StatusCode = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		o.Success = false
		if o.Error == "" {
			o.Error = http.StatusText(resp.StatusCode)
		}
	}
	if !o.Success && o.Error == "" {
		o.Error = "response missing success flag"
	}
}

func setString(q url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value != 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
