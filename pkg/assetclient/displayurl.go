package assetclient

import (
	"strconv"
	"strings"
)

// DisplayOptions 是展示 URL 的变换参数，零值表示不设置。
type DisplayOptions struct {
	Width   int
	Height  int
	Crop    string
	Quality string
	Format  string
}

// CloudinaryBaseURL 返回图片分发的基础地址。
func CloudinaryBaseURL(cloudName string) string {
	return "https://res.cloudinary.com/" + cloudName + "/image/upload"
}

// BuildDisplayURL 拼接基础地址、变换参数与 public_id。
// 变换顺序固定为 w_、h_、c_、q_、f_，未设置的选项不产生参数。
func BuildDisplayURL(base, publicID string, opts DisplayOptions) string {
	tokens := make([]string, 0, 5)
	if opts.Width > 0 {
		tokens = append(tokens, "w_"+strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		tokens = append(tokens, "h_"+strconv.Itoa(opts.Height))
	}
	if v := strings.TrimSpace(opts.Crop); v != "" {
		tokens = append(tokens, "c_"+v)
	}
	if v := strings.TrimSpace(opts.Quality); v != "" {
		tokens = append(tokens, "q_"+v)
	}
	if v := strings.TrimSpace(opts.Format); v != "" {
		tokens = append(tokens, "f_"+v)
	}

	parts := []string{strings.TrimRight(base, "/")}
	if len(tokens) > 0 {
		parts = append(parts, strings.Join(tokens, ","))
	}
	parts = append(parts, strings.TrimLeft(publicID, "/"))
	return strings.Join(parts, "/")
}
