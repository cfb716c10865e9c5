package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"assetproxy/internal/provider"
	"assetproxy/internal/search"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config 包含 S3/MinIO 存储所需的配置。
type Config struct {
	Endpoint  string // 不含协议，如 "localhost:9000" 或 "s3.amazonaws.com"
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool   // 是否使用 HTTPS
	PathStyle bool   // 是否使用路径风格（MinIO 需要 true）
	PublicURL string // 可选：对外访问的基础 URL（CDN 等）
}

// Provider 以 S3 兼容存储作为媒体库。对象 key 即 public_id，
// 检索在服务端过滤排序（provider.Window）。
type Provider struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// New 创建新的 S3 存储实例。
func New(ctx context.Context, cfg Config) (*Provider, error) {
	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	// 检查 bucket 是否存在，不存在则创建
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{
			Region: cfg.Region,
		}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Provider{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (p *Provider) Name() string { return "s3" }

// Ping 通过检查 bucket 判断存储是否可达。
func (p *Provider) Ping(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", p.bucket)
	}
	return nil
}

// Search 列出文件夹前缀下的全部对象，再交给 provider.Window 过滤分页。
func (p *Provider) Search(ctx context.Context, q search.Query) (*provider.SearchResult, error) {
	prefix := ""
	if q.Folder != "" {
		prefix = strings.TrimSuffix(q.Folder, "/") + "/"
	}

	var assets []provider.Asset
	for obj := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		assets = append(assets, p.toAsset(obj))
	}

	return provider.Window(assets, q)
}

// Destroy 删除单个对象，对象不存在时返回 "not found"。
func (p *Provider) Destroy(ctx context.Context, publicID string) (string, error) {
	found, err := p.exists(ctx, publicID)
	if err != nil {
		return "", err
	}
	if !found {
		return provider.DestroyNotFound, nil
	}
	if err := p.client.RemoveObject(ctx, p.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return "", fmt.Errorf("remove object: %w", err)
	}
	return provider.DestroyOK, nil
}

// DeleteAssets 先确认对象存在，再用 RemoveObjects 批量删除。
func (p *Provider) DeleteAssets(ctx context.Context, publicIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(publicIDs))
	objects := make(chan minio.ObjectInfo, len(publicIDs))

	for _, id := range publicIDs {
		found, err := p.exists(ctx, id)
		if err != nil {
			close(objects)
			return nil, err
		}
		if !found {
			out[id] = provider.StatusNotFound
			continue
		}
		out[id] = provider.StatusDeleted
		objects <- minio.ObjectInfo{Key: id}
	}
	close(objects)

	for rerr := range p.client.RemoveObjects(ctx, p.bucket, objects, minio.RemoveObjectsOptions{}) {
		out[rerr.ObjectName] = "error: " + rerr.Err.Error()
	}
	return out, nil
}

// Usage S3 没有账户级用量接口。
func (p *Provider) Usage(ctx context.Context) (*provider.Usage, error) {
	return nil, provider.ErrUsageUnavailable
}

// RootFolders 非递归列出顶层前缀。
func (p *Provider) RootFolders(ctx context.Context) ([]provider.Folder, error) {
	var folders []provider.Folder
	for obj := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := strings.TrimSuffix(obj.Key, "/")
		folders = append(folders, provider.Folder{Name: name, Path: name})
	}
	return folders, nil
}

// Upload 只支持 data URI。
func (p *Provider) Upload(ctx context.Context, req provider.UploadRequest) (*provider.Asset, error) {
	mimeType, data, err := provider.ParseDataURI(req.File)
	if err != nil {
		return nil, err
	}

	name := req.Filename
	if name == "" {
		name = fmt.Sprintf("upload-%d", len(data))
	}
	key := path.Join(req.Folder, name+"."+provider.ExtensionFor(mimeType))

	info, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	asset := p.toAsset(minio.ObjectInfo{Key: info.Key, Size: info.Size, LastModified: info.LastModified})
	return &asset, nil
}

func (p *Provider) exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("stat object: %w", err)
}

func (p *Provider) toAsset(obj minio.ObjectInfo) provider.Asset {
	base := path.Base(obj.Key)
	ext := path.Ext(base)
	url := p.publicURL + "/" + obj.Key

	asset := provider.Asset{
		PublicID:  obj.Key,
		Filename:  strings.TrimSuffix(base, ext),
		Format:    strings.ToLower(strings.TrimPrefix(ext, ".")),
		Bytes:     obj.Size,
		CreatedAt: obj.LastModified,
		URL:       url,
	}
	if dir := path.Dir(obj.Key); dir != "." {
		asset.Folder = dir
	}
	if strings.HasPrefix(url, "https://") {
		asset.SecureURL = url
	}
	if len(obj.UserMetadata) > 0 {
		asset.Metadata = make(map[string]any, len(obj.UserMetadata))
		for k, v := range obj.UserMetadata {
			asset.Metadata[k] = v
		}
	}
	return asset
}

var _ provider.Provider = (*Provider)(nil)
