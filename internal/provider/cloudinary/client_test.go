package cloudinary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"assetproxy/internal/provider"
	"assetproxy/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServerProvider 让 SDK 客户端把所有 API 请求发往测试服务器。
func newServerProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	p.client.Config.API.UploadPrefix = srv.URL
	p.client.Admin.Config.API.UploadPrefix = srv.URL
	p.client.Upload.Config.API.UploadPrefix = srv.URL
	return p
}

func writeBody(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func fakeResources(from, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, map[string]any{
			"public_id":  fmt.Sprintf("business-images/img-%04d", i),
			"format":     "jpg",
			"bytes":      1000 + i,
			"width":      800,
			"height":     600,
			"created_at": "2024-05-01T10:00:00Z",
			"folder":     "business-images",
		})
	}
	return out
}

func TestSearch_FollowsCursorAcrossCalls(t *testing.T) {
	var (
		mu      sync.Mutex
		limits  []int
		cursors []string
	)
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/resources/search"), r.URL.Path)

		var body struct {
			Expression string `json:"expression"`
			MaxResults int    `json:"max_results"`
			NextCursor string `json:"next_cursor"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "folder:business-images", body.Expression)

		mu.Lock()
		limits = append(limits, body.MaxResults)
		cursors = append(cursors, body.NextCursor)
		mu.Unlock()

		switch body.NextCursor {
		case "":
			writeBody(w, map[string]any{"total_count": 1200, "next_cursor": "c1", "resources": fakeResources(0, body.MaxResults)})
		case "c1":
			// 服务端多返回一条，结果仍不超过 MaxResults
			writeBody(w, map[string]any{"total_count": 1200, "next_cursor": "c2", "resources": fakeResources(500, body.MaxResults+1)})
		default:
			t.Errorf("unexpected cursor %q", body.NextCursor)
		}
	})

	res, err := p.Search(context.Background(), search.Query{
		Filter:     search.Filter{Folder: "business-images"},
		SortField:  "created_at",
		SortOrder:  search.SortDesc,
		MaxResults: 700,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{500, 200}, limits)
	assert.Equal(t, []string{"", "c1"}, cursors)
	assert.Equal(t, 1200, res.TotalCount)
	assert.Equal(t, "c2", res.NextCursor)
	require.Len(t, res.Assets, 700)
	assert.Equal(t, "business-images/img-0000", res.Assets[0].PublicID)
	assert.Equal(t, "business-images/img-0699", res.Assets[699].PublicID)
	require.NotNil(t, res.Assets[0].Width)
	assert.Equal(t, 800, *res.Assets[0].Width)
}

func TestSearch_StopsWhenCursorEnds(t *testing.T) {
	calls := 0
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeBody(w, map[string]any{"total_count": 3, "resources": fakeResources(0, 3)})
	})

	res, err := p.Search(context.Background(), search.Query{
		Filter:     search.Filter{Folder: "business-images"},
		SortField:  "created_at",
		SortOrder:  search.SortDesc,
		MaxResults: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, res.Assets, 3)
	assert.Empty(t, res.NextCursor)
}

func TestDeleteAssets_DecodesStatusMap(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Contains(t, r.URL.Path, "/resources/image/upload")
		writeBody(w, map[string]any{
			"deleted": map[string]string{"a": "deleted", "b": "not_found"},
			"partial": false,
		})
	})

	out, err := p.DeleteAssets(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": provider.StatusDeleted, "b": provider.StatusNotFound}, out)
}

func TestUsage_KeepsQuotas(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/usage"), r.URL.Path)
		writeBody(w, map[string]any{
			"plan":      "Free",
			"credits":   map[string]any{"usage": 1.5, "limit": 25, "used_percent": 6},
			"bandwidth": map[string]any{"usage": 100, "limit": 1000, "used_percent": 10},
			"storage":   map[string]any{"usage": 2048, "limit": 4096, "used_percent": 50},
			"resources": 42,
		})
	})

	usage, err := p.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Free", usage.Plan)
	assert.Equal(t, int64(42), usage.Resources)

	require.NotNil(t, usage.Credits)
	assert.Equal(t, 25.0, usage.Credits.Limit)
	require.NotNil(t, usage.Bandwidth)
	assert.Equal(t, 100.0, usage.Bandwidth.Usage)
	assert.Equal(t, 1000.0, usage.Bandwidth.Limit)
	assert.Equal(t, 10.0, usage.Bandwidth.UsedPercent)
	require.NotNil(t, usage.Storage)
	assert.Equal(t, 4096.0, usage.Storage.Limit)
	assert.Equal(t, 50.0, usage.Storage.UsedPercent)
}

func TestUsage_PlanRestriction(t *testing.T) {
	p := newServerProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]any{"error": map[string]any{"message": "Usage API is not allowed for this plan"}})
	})

	_, err := p.Usage(context.Background())
	require.ErrorIs(t, err, provider.ErrUsageUnavailable)
}
