package assets

import (
	"context"
	"testing"

	"assetproxy/internal/provider"
	"assetproxy/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publicIDs(page *Page) []string {
	ids := make([]string, 0, len(page.Resources))
	for _, r := range page.Resources {
		ids = append(ids, r.PublicID)
	}
	return ids
}

func TestListPage_FirstPage(t *testing.T) {
	p := provider.NewMockProvider()
	seed(p, 25)
	s := newTestService(p, Options{})

	page, err := s.ListPage(context.Background(), PageRequest{Limit: 10})
	require.NoError(t, err)

	assert.Len(t, page.Resources, 10)
	assert.Equal(t, 25, page.TotalCount)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, DefaultFolder, page.Folder)
	assert.Equal(t, "business-images/img-24", page.Resources[0].PublicID, "newest first by default")

	require.Len(t, p.Queries, 1)
	q := p.Queries[0]
	assert.Equal(t, "folder:business-images", q.Expression())
	assert.Equal(t, 10, q.MaxResults)
	assert.Equal(t, search.SortDesc, q.SortOrder)
}

func TestListPage_PageWalksCursor(t *testing.T) {
	p := provider.NewMockProvider()
	seed(p, 25)
	s := newTestService(p, Options{})

	first, err := s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 1})
	require.NoError(t, err)

	second, err := s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Resources, 10)
	assert.NotEqual(t, publicIDs(first), publicIDs(second), "page 2 must advance past page 1")
	assert.Equal(t, "business-images/img-14", second.Resources[0].PublicID)

	viaCursor, err := s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, publicIDs(second), publicIDs(viaCursor))

	third, err := s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 3})
	require.NoError(t, err)
	assert.Len(t, third.Resources, 5)
	assert.False(t, third.HasMore)
	assert.Empty(t, third.NextCursor)
}

func TestListPage_PastEndReturnsEmptyPage(t *testing.T) {
	p := provider.NewMockProvider()
	seed(p, 5)
	s := newTestService(p, Options{})

	page, err := s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 3})
	require.NoError(t, err)
	assert.Empty(t, page.Resources)
	assert.NotNil(t, page.Resources)
	assert.Equal(t, 5, page.TotalCount)
	assert.False(t, page.HasMore)
	assert.Len(t, p.Queries, 1, "walk stops when the result set ends")
}

func TestListPage_SkipBound(t *testing.T) {
	p := provider.NewMockProvider()
	seed(p, 50)
	s := newTestService(p, Options{MaxSkipPages: 2})

	_, err := s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 3})
	require.NoError(t, err)

	_, err = s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 4})
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodePageOutOfRange, v.Code)

	s = newTestService(p, Options{MaxSkipPages: -1})
	_, err = s.ListPage(context.Background(), PageRequest{Limit: 10, Page: 2})
	v, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodePageOutOfRange, v.Code)
}

func TestListPage_TermAndSort(t *testing.T) {
	p := provider.NewMockProvider()
	seed(p, 12)
	s := newTestService(p, Options{})

	page, err := s.ListPage(context.Background(), PageRequest{
		Term:      "  img-1 ",
		SortField: "public_id",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, "img-1", page.SearchTerm)
	assert.Equal(t, []string{"business-images/img-10", "business-images/img-11"}, publicIDs(page))
	assert.Equal(t,
		"folder:business-images AND (filename:*img\\-1* OR public_id:*img\\-1*)",
		p.Queries[0].Expression())
}

func TestListPage_LimitNeverExceeded(t *testing.T) {
	p := provider.NewMockProvider()
	p.SearchFunc = func(q search.Query) (*provider.SearchResult, error) {
		assets := make([]provider.Asset, q.MaxResults+5)
		for i := range assets {
			assets[i] = provider.Asset{PublicID: "x"}
		}
		return &provider.SearchResult{Assets: assets, TotalCount: 100}, nil
	}
	s := newTestService(p, Options{})

	for _, limit := range []int{1, 7, 20} {
		page, err := s.ListPage(context.Background(), PageRequest{Limit: limit})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Resources), limit)
		assert.Equal(t, page.NextCursor != "", page.HasMore)
	}
}

func TestListPage_Validation(t *testing.T) {
	s := newTestService(provider.NewMockProvider(), Options{MaxLimit: 50})

	tests := []struct {
		name string
		req  PageRequest
		code string
	}{
		{"negative page", PageRequest{Page: -1}, CodeInvalidPage},
		{"negative limit", PageRequest{Limit: -5}, CodeInvalidLimit},
		{"bad sort field", PageRequest{SortField: "secret"}, CodeInvalidSort},
		{"bad order", PageRequest{SortOrder: "sideways"}, CodeInvalidSort},
		{"bad cursor", PageRequest{Cursor: "!!!"}, CodeInvalidCursor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ListPage(context.Background(), tt.req)
			v, ok := AsValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.code, v.Code)
		})
	}

	page, err := s.ListPage(context.Background(), PageRequest{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 50, page.Limit)
}

func TestListPage_ProviderError(t *testing.T) {
	p := provider.NewMockProvider()
	p.SearchErr = assert.AnError
	s := newTestService(p, Options{})

	page, err := s.ListPage(context.Background(), PageRequest{})
	assert.Nil(t, page)
	perr, ok := AsProvider(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to fetch images", perr.Context)
	assert.ErrorIs(t, err, assert.AnError)
}
