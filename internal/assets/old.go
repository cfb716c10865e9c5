package assets

import (
	"context"
	"time"

	"assetproxy/internal/search"
)

// DefaultOlderThanDays 是旧图片的默认天数阈值。
const DefaultOlderThanDays = 30

// OldImagesRequest 是旧图片查询的参数。
type OldImagesRequest struct {
	Folder        string
	OlderThanDays int
	Limit         int
}

// OldImagesResult 是旧图片查询的结果，按创建时间升序。
type OldImagesResult struct {
	Resources     []ImageAsset `json:"resources"`
	Count         int          `json:"count"`
	Folder        string       `json:"folder"`
	OlderThanDays int          `json:"older_than_days"`
	Cutoff        time.Time    `json:"cutoff"`
}

// OldImages 按创建时间升序检索，返回早于阈值的资源。
// 只检查最早的 Limit 条，因此结果最多 Limit 条。
func (s *Service) OldImages(ctx context.Context, req OldImagesRequest) (*OldImagesResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	days := req.OlderThanDays
	switch {
	case days == 0:
		days = DefaultOlderThanDays
	case days < 0:
		return nil, Invalid(CodeInvalidDays, "older_than_days must be a positive integer")
	}

	limit := req.Limit
	switch {
	case limit == 0:
		limit = s.opts.MaxLimit
	case limit < 0:
		return nil, Invalid(CodeInvalidLimit, "limit must be a positive integer")
	case limit > StatsSampleSize:
		limit = StatsSampleSize
	}

	q := search.Query{
		Filter:     search.Filter{Folder: s.folderOrDefault(req.Folder)},
		SortField:  search.DefaultSortField,
		SortOrder:  search.SortAsc,
		MaxResults: limit,
	}
	res, err := s.search(ctx, "old_images", q)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().AddDate(0, 0, -days)
	out := &OldImagesResult{
		Resources:     []ImageAsset{},
		Folder:        q.Folder,
		OlderThanDays: days,
		Cutoff:        cutoff,
	}
	for _, a := range res.Assets {
		if a.CreatedAt.IsZero() || !a.CreatedAt.Before(cutoff) {
			continue
		}
		out.Resources = append(out.Resources, toImageAsset(a))
	}
	out.Count = len(out.Resources)
	return out, nil
}
