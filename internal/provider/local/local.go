package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"assetproxy/internal/provider"
	"assetproxy/internal/search"

	_ "golang.org/x/image/webp"
)

// Provider 以本地目录作为媒体库，用于开发环境。public_id 为相对 BaseDir 的斜杠路径。
type Provider struct {
	BaseDir string
	BaseURL string
}

// New 创建本地目录后端，目录不存在时自动创建。
func New(baseDir, baseURL string) (*Provider, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("local asset dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &Provider{BaseDir: baseDir, BaseURL: baseURL}, nil
}

func (p *Provider) Name() string { return "local" }

func (p *Provider) Ping(ctx context.Context) error {
	info, err := os.Stat(p.BaseDir)
	if err != nil {
		return fmt.Errorf("stat asset dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("路径 %s 已存在但不是目录", p.BaseDir)
	}
	return nil
}

// Search 遍历文件夹下的文件，再交给 provider.Window 过滤分页。
func (p *Provider) Search(ctx context.Context, q search.Query) (*provider.SearchResult, error) {
	root, err := p.resolve(q.Folder)
	if err != nil {
		return nil, err
	}

	var assets []provider.Asset
	err = filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		asset, err := p.describe(full)
		if err != nil {
			return err
		}
		assets = append(assets, asset)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk asset dir: %w", err)
	}

	return provider.Window(assets, q)
}

func (p *Provider) Destroy(ctx context.Context, publicID string) (string, error) {
	full, err := p.resolve(publicID)
	if err != nil {
		return "", err
	}
	// 目录不是资源，按不存在处理
	info, err := os.Lstat(full)
	switch {
	case os.IsNotExist(err):
		return provider.DestroyNotFound, nil
	case err != nil:
		return "", fmt.Errorf("stat file: %w", err)
	case info.IsDir():
		return provider.DestroyNotFound, nil
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return provider.DestroyNotFound, nil
		}
		return "", fmt.Errorf("remove file: %w", err)
	}
	return provider.DestroyOK, nil
}

func (p *Provider) DeleteAssets(ctx context.Context, publicIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(publicIDs))
	for _, id := range publicIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, err := p.Destroy(ctx, id)
		switch {
		case err != nil:
			out[id] = "error: " + err.Error()
		case status == provider.DestroyNotFound:
			out[id] = provider.StatusNotFound
		default:
			out[id] = provider.StatusDeleted
		}
	}
	return out, nil
}

// Usage 汇总目录占用作为存储用量，没有套餐信息。
func (p *Provider) Usage(ctx context.Context) (*provider.Usage, error) {
	var total, count int64
	err := filepath.WalkDir(p.BaseDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk asset dir: %w", err)
	}
	return &provider.Usage{
		Plan:      "local",
		Storage:   &provider.Quota{Usage: float64(total)},
		Resources: count,
	}, nil
}

func (p *Provider) RootFolders(ctx context.Context) ([]provider.Folder, error) {
	entries, err := os.ReadDir(p.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("read asset dir: %w", err)
	}
	var folders []provider.Folder
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, provider.Folder{Name: entry.Name(), Path: entry.Name()})
		}
	}
	return folders, nil
}

// Upload 解码 data URI 后原子写入（临时文件 + rename）。
func (p *Provider) Upload(ctx context.Context, req provider.UploadRequest) (*provider.Asset, error) {
	mimeType, data, err := provider.ParseDataURI(req.File)
	if err != nil {
		return nil, err
	}
	name := req.Filename
	if name == "" {
		name = fmt.Sprintf("upload-%d", len(data))
	}

	targetPath, err := p.resolve(path.Join(req.Folder, name+"."+provider.ExtensionFor(mimeType)))
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(ctx, targetPath, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	asset, err := p.describe(targetPath)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func writeAtomic(ctx context.Context, targetPath string, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}

	tempPath := targetPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("sync file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// resolve 将 public_id 或文件夹映射到 BaseDir 下的路径，拒绝越界访问。
func (p *Provider) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	full := filepath.Join(p.BaseDir, clean)
	rel, err := filepath.Rel(p.BaseDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid asset path: %s", key)
	}
	return full, nil
}

func (p *Provider) describe(full string) (provider.Asset, error) {
	info, err := os.Stat(full)
	if err != nil {
		return provider.Asset{}, fmt.Errorf("stat file: %w", err)
	}
	rel, err := filepath.Rel(p.BaseDir, full)
	if err != nil {
		return provider.Asset{}, err
	}
	key := filepath.ToSlash(rel)
	base := path.Base(key)
	ext := path.Ext(base)

	asset := provider.Asset{
		PublicID:  key,
		Filename:  strings.TrimSuffix(base, ext),
		Format:    strings.ToLower(strings.TrimPrefix(ext, ".")),
		Bytes:     info.Size(),
		CreatedAt: info.ModTime().UTC(),
	}
	if dir := path.Dir(key); dir != "." {
		asset.Folder = dir
	}
	if p.BaseURL != "" {
		if u, err := url.JoinPath(p.BaseURL, key); err == nil {
			asset.URL = u
			if strings.HasPrefix(u, "https://") {
				asset.SecureURL = u
			}
		}
	}

	if f, err := os.Open(full); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			asset.Width = provider.OptionalInt(cfg.Width)
			asset.Height = provider.OptionalInt(cfg.Height)
		}
		f.Close()
	}
	return asset, nil
}

var _ provider.Provider = (*Provider)(nil)
