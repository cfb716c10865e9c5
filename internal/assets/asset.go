package assets

import (
	"time"

	"assetproxy/internal/provider"
)

// ImageAsset 是对外返回的资源投影，远端缺失的字段在 JSON 中省略。
type ImageAsset struct {
	PublicID  string         `json:"public_id"`
	Filename  string         `json:"filename,omitempty"`
	Format    string         `json:"format,omitempty"`
	Width     *int           `json:"width,omitempty"`
	Height    *int           `json:"height,omitempty"`
	Bytes     int64          `json:"bytes"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Folder    string         `json:"folder,omitempty"`
	SecureURL string         `json:"secure_url,omitempty"`
	URL       string         `json:"url,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func toImageAsset(a provider.Asset) ImageAsset {
	out := ImageAsset{
		PublicID:  a.PublicID,
		Filename:  a.Filename,
		Format:    a.Format,
		Width:     a.Width,
		Height:    a.Height,
		Bytes:     a.Bytes,
		Folder:    a.Folder,
		SecureURL: a.SecureURL,
		URL:       a.URL,
		Tags:      a.Tags,
		Context:   a.Context,
		Metadata:  a.Metadata,
	}
	if !a.CreatedAt.IsZero() {
		created := a.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

func toImageAssets(in []provider.Asset) []ImageAsset {
	out := make([]ImageAsset, 0, len(in))
	for _, a := range in {
		out = append(out, toImageAsset(a))
	}
	return out
}
