package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"assetproxy/internal/assets"
	"assetproxy/internal/audit"
	"assetproxy/internal/provider"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	maxDeleteBodyBytes int64 = 1 << 20
	uploadBodyOverhead int64 = 64 * 1024
)

// AssetHandler 负责处理 /cloudinary 下的资源管理接口。
type AssetHandler struct {
	service       *assets.Service
	logger        *slog.Logger
	maxUploadSize int64
	now           func() time.Time
}

// NewAssetHandler 创建资源处理器。
func NewAssetHandler(svc *assets.Service, logger *slog.Logger) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := int64(0)
	if svc != nil {
		maxUpload = svc.Options().UploadRules.MaxSize
	}
	return &AssetHandler{
		service:       svc,
		logger:        logger,
		maxUploadSize: maxUpload,
		now:           time.Now,
	}
}

// RegisterRoutes 注册资源相关路由。
func (h *AssetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cloudinary", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/images", h.ListImages)
		r.Get("/stats", h.Stats)
		r.Delete("/delete", h.DeleteImage)
		r.Post("/delete-multiple", h.DeleteImages)
		r.Post("/upload", h.Upload)
		r.Get("/folders", h.Folders)
		r.Get("/old-images", h.OldImages)
		r.Get("/deletions", h.Deletions)
	})
}

// Health 探测媒体后端的连通性。
func (h *AssetHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"status":    "ok",
		"message":   "Media provider connection OK",
		"provider":  h.service.ProviderName(),
		"timestamp": h.timestamp(),
	})
}

type imagesResponse struct {
	Success bool `json:"success"`
	*assets.Page
}

// ListImages 分页检索指定文件夹下的图片。
func (h *AssetHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", assets.CodeInvalidPage)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", assets.CodeInvalidLimit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := h.service.ListPage(r.Context(), assets.PageRequest{
		Folder:    q.Get("folder"),
		Term:      q.Get("search"),
		Page:      page,
		Limit:     limit,
		SortField: q.Get("sort_by"),
		SortOrder: q.Get("order"),
		Cursor:    q.Get("cursor"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imagesResponse{Success: true, Page: result})
}

// Stats 返回文件夹统计与账户用量。
func (h *AssetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Stats(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"stats":     report,
		"timestamp": h.timestamp(),
	})
}

// DeleteImage 删除单个资源，请求体为 {"public_id": "..."}。
func (h *AssetHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PublicID json.RawMessage `json:"public_id"`
	}
	if err := decodeJSON(w, r, &body, maxDeleteBodyBytes); err != nil && !errors.Is(err, errEmptyBody) {
		h.writeServiceError(w, r, assets.Invalid(assets.CodeMissingPublicID, "invalid JSON body: %v", err))
		return
	}

	publicID, err := rawString(body.PublicID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, err := h.service.DeleteOne(r.Context(), publicID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   result.Success,
		"message":   deleteMessage(result.Result),
		"result":    result.Result,
		"public_id": result.PublicID,
	})
}

// DeleteImages 批量删除，请求体为 {"public_ids": ["..."]}。
// 部分失败时仍返回 200，由 success 与 details 表达结果。
func (h *AssetHandler) DeleteImages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PublicIDs json.RawMessage `json:"public_ids"`
	}
	if err := decodeJSON(w, r, &body, maxDeleteBodyBytes); err != nil && !errors.Is(err, errEmptyBody) {
		h.writeServiceError(w, r, assets.Invalid(assets.CodeMissingPublicIDs, "invalid JSON body: %v", err))
		return
	}

	ids, err := rawStrings(body.PublicIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	summary, err := h.service.DeleteMany(r.Context(), ids)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": summary.Success,
		"message": summary.Message(),
		"details": summary,
	})
}

// Upload 上传单张图片，支持 JSON（data URI 或 URL）与 multipart 两种请求体。
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var (
		in  assets.UploadInput
		err error
	)
	if isMultipart(r) {
		in, err = readMultipartUpload(w, r, h.maxUploadSize)
	} else {
		var body struct {
			Image    string `json:"image"`
			Folder   string `json:"folder"`
			Filename string `json:"filename"`
		}
		// base64 编码约为原始大小的 4/3
		limit := h.maxUploadSize/3*4 + uploadBodyOverhead
		if decodeErr := decodeJSON(w, r, &body, limit); decodeErr != nil && !errors.Is(decodeErr, errEmptyBody) {
			err = assets.Invalid(assets.CodeInvalidUpload, "invalid JSON body: %v", decodeErr)
		}
		in = assets.UploadInput{Image: body.Image, Folder: body.Folder, Filename: body.Filename}
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	image, err := h.service.Upload(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Image uploaded successfully",
		"image":   image,
	})
}

// Folders 列出根目录下的文件夹。
func (h *AssetHandler) Folders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.service.Folders(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool              `json:"success"`
		Folders []provider.Folder `json:"folders"`
	}{Success: true, Folders: folders})
}

type oldImagesResponse struct {
	Success bool `json:"success"`
	*assets.OldImagesResult
}

// OldImages 列出早于指定天数的图片。
func (h *AssetHandler) OldImages(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "older_than_days", assets.CodeInvalidDays)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", assets.CodeInvalidLimit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	result, err := h.service.OldImages(r.Context(), assets.OldImagesRequest{
		Folder:        r.URL.Query().Get("folder"),
		OlderThanDays: days,
		Limit:         limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, oldImagesResponse{Success: true, OldImagesResult: result})
}

// Deletions 返回最近的删除审计记录。
func (h *AssetHandler) Deletions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", assets.CodeInvalidLimit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entries, err := h.service.Deletions(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success   bool          `json:"success"`
		Deletions []audit.Entry `json:"deletions"`
	}{Success: true, Deletions: entries})
}

func (h *AssetHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// writeServiceError 把服务层错误映射为统一的错误响应。
func (h *AssetHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := assets.MapHTTPStatus(err)
	body := errorResponse{Error: err.Error()}

	if v, ok := assets.AsValidation(err); ok {
		body.Error = v.Message
		body.Code = v.Code
	} else if p, ok := assets.AsProvider(err); ok {
		body.Error = p.Context
		body.Details = p.Err.Error()
	} else if status >= http.StatusInternalServerError {
		body.Error = "Internal server error"
	}

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", chimiddleware.GetReqID(r.Context()),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", attrs...)
	} else {
		h.logger.Warn("request rejected", attrs...)
	}

	writeJSON(w, status, body)
}

// rawString 解析 JSON 字段中的字符串，缺失视为空串，非字符串返回 INVALID_PUBLIC_ID。
func rawString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", assets.Invalid(assets.CodeInvalidPublicID, "public_id must be a string")
	}
	return s, nil
}

// rawStrings 解析字符串数组。缺失或非数组返回 MISSING_PUBLIC_IDS，
// 数组中出现非字符串元素返回 INVALID_PUBLIC_ID。
func rawStrings(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, assets.Invalid(assets.CodeMissingPublicIDs, "public_ids must be a non-empty array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, assets.Invalid(assets.CodeMissingPublicIDs, "public_ids must be a non-empty array")
	}

	ids := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil || string(item) == "null" {
			return nil, assets.Invalid(assets.CodeInvalidPublicID, "public_ids[%d] must be a string", i)
		}
		ids = append(ids, s)
	}
	return ids, nil
}

func deleteMessage(result string) string {
	switch strings.ToLower(result) {
	case "ok":
		return "Image deleted successfully"
	case "not found":
		return "Image not found (already deleted)"
	default:
		return "Delete returned status: " + result
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
