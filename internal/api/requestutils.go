package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"assetproxy/internal/assets"
)

const multipartMemoryBudget int64 = 16 * 1024 * 1024

// errEmptyBody 表示请求体为空。
var errEmptyBody = errors.New("request body is empty")

// decodeJSON 解码请求体，超过 limit 字节时返回错误。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	if r.Body == nil {
		return errEmptyBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// queryInt 读取整数查询参数，缺省返回 0，非整数返回带 code 的校验错误。
func queryInt(r *http.Request, key, code string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, assets.Invalid(code, "%s must be an integer", key)
	}
	return value, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// readMultipartUpload 读取 multipart 表单中的 file 字段并转为 data URI，
// folder 与 filename 来自同名表单字段。
func readMultipartUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (assets.UploadInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartMemoryBudget)
	defer r.Body.Close()

	if err := r.ParseMultipartForm(multipartMemoryBudget); err != nil {
		return assets.UploadInput{}, assets.Invalid(assets.CodeInvalidUpload, "invalid multipart form: %v", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return assets.UploadInput{}, assets.Invalid(assets.CodeInvalidUpload, "file field is required")
	}
	defer file.Close()

	sizeBytes, err := determineFileSize(file, header)
	if err != nil {
		return assets.UploadInput{}, assets.Invalid(assets.CodeInvalidUpload, "%v", err)
	}
	if sizeBytes > maxSize {
		return assets.UploadInput{}, assets.Invalid(assets.CodeInvalidUpload, "file exceeds size limit")
	}

	mimeType, err := resolveMimeType(header, file)
	if err != nil {
		return assets.UploadInput{}, assets.Invalid(assets.CodeInvalidUpload, "%v", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return assets.UploadInput{}, assets.Invalid(assets.CodeInvalidUpload, "unable to read uploaded file")
	}

	filename := strings.TrimSpace(r.FormValue("filename"))
	if filename == "" && header != nil {
		filename = strings.TrimSuffix(header.Filename, extOf(header.Filename))
	}

	return assets.UploadInput{
		Image:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Folder:   r.FormValue("folder"),
		Filename: filename,
	}, nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}

func determineFileSize(file multipart.File, header *multipart.FileHeader) (int64, error) {
	if header != nil && header.Size > 0 {
		return header.Size, nil
	}

	seeker, ok := file.(io.Seeker)
	if !ok {
		return 0, fmt.Errorf("cannot determine file size")
	}

	size, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("measure file: %w", err)
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind file: %w", err)
	}

	return size, nil
}

// resolveMimeType 优先使用表单声明的类型，否则嗅探前 512 字节。
func resolveMimeType(header *multipart.FileHeader, file multipart.File) (string, error) {
	if header != nil {
		if value := header.Header.Get("Content-Type"); value != "" && value != "application/octet-stream" {
			return value, nil
		}
	}

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("detect mime: %w", err)
	}

	if err := rewindFile(file); err != nil {
		return "", err
	}
	if n == 0 {
		return "application/octet-stream", nil
	}
	return http.DetectContentType(buf[:n]), nil
}

func rewindFile(file multipart.File) error {
	seeker, ok := file.(io.Seeker)
	if !ok {
		return fmt.Errorf("upload reader is not seekable")
	}
	_, err := seeker.Seek(0, io.SeekStart)
	return err
}
