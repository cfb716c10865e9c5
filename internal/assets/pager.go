package assets

import (
	"context"
	"strings"

	"assetproxy/internal/provider"
	"assetproxy/internal/search"
)

// PageRequest 是分页检索的输入。Page 从 1 开始，0 视为 1。
type PageRequest struct {
	Folder    string
	Term      string
	Page      int
	Limit     int
	SortField string
	SortOrder string
	Cursor    string
}

// Page 是分页检索的结果。HasMore 当且仅当 NextCursor 非空。
type Page struct {
	Resources  []ImageAsset `json:"resources"`
	TotalCount int          `json:"total_count"`
	NextCursor string       `json:"next_cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	SearchTerm string       `json:"search_term"`
	Folder     string       `json:"folder"`
}

// ListPage 编译检索条件并返回一页结果。
//
// 调用方提供游标时直接续查；没有游标且 Page > 1 时，按游标向前走 Page-1 次，
// 最多 MaxSkipPages 次，超出返回 PAGE_OUT_OF_RANGE，结果集提前结束则返回空页。
func (s *Service) ListPage(ctx context.Context, req PageRequest) (*Page, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, Invalid(CodeInvalidPage, "page must be a positive integer")
	}

	q, err := s.pageQuery(req)
	if err != nil {
		return nil, err
	}

	out := &Page{
		Resources:  []ImageAsset{},
		Page:       page,
		Limit:      q.MaxResults,
		SearchTerm: strings.TrimSpace(req.Term),
		Folder:     q.Folder,
	}

	if q.Cursor == "" && page > 1 {
		skip := page - 1
		if skip > s.opts.MaxSkipPages {
			return nil, Invalid(CodePageOutOfRange,
				"page %d cannot be reached without a cursor (max %d); pass next_cursor instead",
				page, s.opts.MaxSkipPages+1)
		}
		for i := 0; i < skip; i++ {
			res, err := s.search(ctx, "search", q)
			if err != nil {
				return nil, err
			}
			if res.NextCursor == "" {
				out.TotalCount = res.TotalCount
				return out, nil
			}
			q.Cursor = res.NextCursor
		}
	}

	res, err := s.search(ctx, "search", q)
	if err != nil {
		return nil, err
	}

	found := res.Assets
	if len(found) > q.MaxResults {
		found = found[:q.MaxResults]
	}
	out.Resources = toImageAssets(found)
	out.TotalCount = res.TotalCount
	out.NextCursor = res.NextCursor
	out.HasMore = res.NextCursor != ""
	return out, nil
}

func (s *Service) pageQuery(req PageRequest) (search.Query, error) {
	limit := req.Limit
	switch {
	case limit == 0:
		limit = s.opts.DefaultLimit
	case limit < 0:
		return search.Query{}, Invalid(CodeInvalidLimit, "limit must be a positive integer")
	case limit > s.opts.MaxLimit:
		limit = s.opts.MaxLimit
	}

	q := search.Query{
		Filter: search.Filter{
			Folder: s.folderOrDefault(req.Folder),
			Term:   req.Term,
		},
		SortField:  strings.TrimSpace(req.SortField),
		SortOrder:  search.SortOrder(req.SortOrder),
		MaxResults: limit,
		Cursor:     strings.TrimSpace(req.Cursor),
	}
	if err := q.Normalize(); err != nil {
		return search.Query{}, Invalid(CodeInvalidSort, "%v", err)
	}
	return q, nil
}

// search 执行一次检索，并将错误归类为校验错误或远端错误。
func (s *Service) search(ctx context.Context, op string, q search.Query) (*provider.SearchResult, error) {
	var res *provider.SearchResult
	err := s.observe(op, func() error {
		var err error
		res, err = s.provider.Search(ctx, q)
		return err
	})
	if err != nil {
		if isInvalidCursor(err) {
			return nil, Invalid(CodeInvalidCursor, "cursor is invalid or expired")
		}
		return nil, providerError(op, "Failed to fetch images", err)
	}
	if res == nil {
		res = &provider.SearchResult{}
	}
	return res, nil
}
