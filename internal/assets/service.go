package assets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"assetproxy/internal/audit"
	"assetproxy/internal/metrics"
	"assetproxy/internal/provider"
	"assetproxy/pkg/imagerules"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// 服务默认值。
const (
	DefaultFolder       = "business-images"
	DefaultPageLimit    = 20
	DefaultMaxPageLimit = 500
	DefaultMaxSkipPages = 10
	DefaultAuditLimit   = 50
	MaxAuditLimit       = 200
)

// Options 控制 Service 的默认值与策略。
type Options struct {
	DefaultFolder string
	DefaultLimit  int
	MaxLimit      int
	// MaxSkipPages 是没有游标时按页码向前翻页的最大次数，0 取默认值，负数表示禁止。
	MaxSkipPages  int
	SuccessPolicy SuccessPolicy
	UploadRules   imagerules.Rules
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.DefaultFolder) == "" {
		o.DefaultFolder = DefaultFolder
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultPageLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = DefaultMaxPageLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	switch {
	case o.MaxSkipPages == 0:
		o.MaxSkipPages = DefaultMaxSkipPages
	case o.MaxSkipPages < 0:
		o.MaxSkipPages = 0
	}
	if o.SuccessPolicy == "" {
		o.SuccessPolicy = PolicyAnySucceeded
	}
	if o.UploadRules.MaxSize <= 0 && len(o.UploadRules.AllowedTypes) == 0 {
		o.UploadRules = imagerules.DefaultRules()
	}
	return o
}

// Service 封装媒体资源的检索、统计与删除流程。
// 远端客户端在进程启动时注入，请求之间不共享其他可变状态。
type Service struct {
	provider provider.Provider
	audit    audit.Recorder
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
}

func NewService(p provider.Provider, recorder audit.Recorder, logger *slog.Logger, opts Options) *Service {
	if recorder == nil {
		recorder = audit.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: p,
		audit:    recorder,
		logger:   logger,
		opts:     opts.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 替换时间来源，用于测试。
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Options 返回生效的配置。
func (s *Service) Options() Options {
	return s.opts
}

// ProviderName 返回后端名称。
func (s *Service) ProviderName() string {
	if s == nil || s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

func (s *Service) ready() error {
	if s == nil || s.provider == nil {
		return ErrNotInitialized
	}
	return nil
}

// observe 执行一次远端调用并记录指标。
func (s *Service) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveProviderCall(s.provider.Name(), op, err, time.Since(start))
	return err
}

func (s *Service) folderOrDefault(folder string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return s.opts.DefaultFolder
	}
	return folder
}

// Health 检查远端是否可达。
func (s *Service) Health(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.observe("ping", func() error { return s.provider.Ping(ctx) })
	if err != nil {
		return providerError("ping", "Media provider connection failed", err)
	}
	return nil
}

// Folders 列出顶层文件夹。
func (s *Service) Folders(ctx context.Context) ([]provider.Folder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var folders []provider.Folder
	err := s.observe("root_folders", func() error {
		var err error
		folders, err = s.provider.RootFolders(ctx)
		return err
	})
	if err != nil {
		return nil, providerError("root_folders", "Failed to fetch folders", err)
	}
	if folders == nil {
		folders = []provider.Folder{}
	}
	return folders, nil
}

// UploadInput 是调试用上传的参数。
type UploadInput struct {
	Image    string
	Folder   string
	Filename string
}

// Upload 校验后上传单个资源。data URI 使用与客户端相同的 ValidateImage 规则。
func (s *Service) Upload(ctx context.Context, in UploadInput) (*ImageAsset, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	image := strings.TrimSpace(in.Image)
	switch {
	case image == "":
		return nil, Invalid(CodeInvalidUpload, "image is required")
	case strings.HasPrefix(image, "data:"):
		mimeType, data, err := provider.ParseDataURI(image)
		if err != nil {
			return nil, Invalid(CodeInvalidUpload, "invalid image data: %v", err)
		}
		check := imagerules.ValidateImage(imagerules.File{
			Name: in.Filename,
			Type: mimeType,
			Size: int64(len(data)),
		}, s.opts.UploadRules)
		if !check.Valid {
			return nil, Invalid(CodeInvalidUpload, "%s", check.Error)
		}
	case strings.HasPrefix(image, "http://"), strings.HasPrefix(image, "https://"):
	default:
		return nil, Invalid(CodeInvalidUpload, "image must be a data URI or an http(s) URL")
	}

	req := provider.UploadRequest{
		File:     image,
		Folder:   s.folderOrDefault(in.Folder),
		Filename: strings.TrimSpace(in.Filename),
	}

	var asset *provider.Asset
	err := s.observe("upload", func() error {
		var err error
		asset, err = s.provider.Upload(ctx, req)
		return err
	})
	if err == nil && asset == nil {
		err = errNoAsset
	}
	if err != nil {
		return nil, providerError("upload", "Failed to upload image", err)
	}

	out := toImageAsset(*asset)
	s.logger.Info("asset uploaded", "public_id", out.PublicID, "folder", req.Folder, "provider", s.provider.Name())
	return &out, nil
}

// DeleteResult 是单个删除的结果。
type DeleteResult struct {
	PublicID string
	Result   string
	Success  bool
}

// DeleteOne 删除单个资源。远端返回 "ok" 或 "not found" 都视为成功。
func (s *Service) DeleteOne(ctx context.Context, publicID string) (*DeleteResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, Invalid(CodeMissingPublicID, "public_id is required")
	}

	var status string
	err := s.observe("destroy", func() error {
		var err error
		status, err = s.provider.Destroy(ctx, publicID)
		return err
	})
	if err != nil {
		metrics.AddDeletions(metrics.OutcomeFailed, 1)
		return nil, providerError("destroy", "Failed to delete image", err)
	}

	result := &DeleteResult{
		PublicID: publicID,
		Result:   status,
		Success:  status == provider.DestroyOK || status == provider.DestroyNotFound,
	}

	switch status {
	case provider.DestroyOK:
		metrics.AddDeletions(metrics.OutcomeDeleted, 1)
	case provider.DestroyNotFound:
		metrics.AddDeletions(metrics.OutcomeNotFound, 1)
	default:
		metrics.AddDeletions(metrics.OutcomeFailed, 1)
	}

	successful, failed := 0, 1
	if result.Success {
		successful, failed = 1, 0
	}
	s.recordAudit(ctx, audit.KindSingle, []string{publicID}, successful, failed, result.Success,
		map[string]string{publicID: status})

	return result, nil
}

// Deletions 返回最近的删除审计记录。
func (s *Service) Deletions(ctx context.Context, limit int) ([]audit.Entry, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	switch {
	case limit == 0:
		limit = DefaultAuditLimit
	case limit < 0:
		return nil, Invalid(CodeInvalidLimit, "limit must be positive")
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	entries, err := s.audit.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// recordAudit 写入审计记录，失败只记录日志。
func (s *Service) recordAudit(ctx context.Context, kind audit.Kind, ids []string, successful, failed int, success bool, results any) {
	raw, err := json.Marshal(results)
	if err != nil {
		s.logger.Warn("encode audit results", "error", err)
		raw = nil
	}

	entry := &audit.Entry{
		ID:             uuid.NewString(),
		Kind:           kind,
		Provider:       s.provider.Name(),
		RequestID:      chimw.GetReqID(ctx),
		SuccessPolicy:  string(s.opts.SuccessPolicy),
		TotalRequested: len(ids),
		Successful:     successful,
		Failed:         failed,
		Success:        success,
		PublicIDs:      ids,
		Results:        raw,
		CreatedAt:      s.now(),
	}
	if err := s.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("record deletion audit", "error", err, "kind", kind, "total", len(ids))
	}
}

func isInvalidCursor(err error) bool {
	return errors.Is(err, provider.ErrInvalidCursor)
}
