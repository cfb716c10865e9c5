package provider

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"assetproxy/internal/search"
)

// ErrInvalidCursor 表示游标无法解析。
var ErrInvalidCursor = errors.New("provider: invalid cursor")

const cursorPrefix = "offset:"

// Window 为不支持服务端检索的后端（S3、本地目录）实现检索语义：
// 按关键字过滤、排序，再按游标截取至多 q.MaxResults 条。
// assets 应已限定在 q.Folder 范围内。
func Window(assets []Asset, q search.Query) (*SearchResult, error) {
	offset, err := decodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	matched := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if q.Matches(a.PublicID, a.Filename) {
			matched = append(matched, a)
		}
	}

	less := comparator(q.SortField)
	sort.SliceStable(matched, func(i, j int) bool {
		if q.SortOrder == search.SortAsc {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	result := &SearchResult{TotalCount: len(matched)}
	if offset >= len(matched) {
		return result, nil
	}

	end := len(matched)
	if q.MaxResults > 0 && offset+q.MaxResults < end {
		end = offset + q.MaxResults
		result.NextCursor = encodeCursor(end)
	}
	result.Assets = matched[offset:end]
	return result, nil
}

func comparator(field string) func(a, b Asset) bool {
	switch field {
	case "public_id":
		return func(a, b Asset) bool { return a.PublicID < b.PublicID }
	case "filename":
		return func(a, b Asset) bool { return a.Filename < b.Filename }
	case "format":
		return func(a, b Asset) bool { return a.Format < b.Format }
	case "bytes":
		return func(a, b Asset) bool { return a.Bytes < b.Bytes }
	case "width":
		return func(a, b Asset) bool { return deref(a.Width) < deref(b.Width) }
	case "height":
		return func(a, b Asset) bool { return deref(a.Height) < deref(b.Height) }
	default:
		return func(a, b Asset) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	value, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}
	offset, err := strconv.Atoi(value)
	if err != nil || offset < 0 {
		return 0, ErrInvalidCursor
	}
	return offset, nil
}
