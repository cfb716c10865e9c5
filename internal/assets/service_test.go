package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"assetproxy/internal/audit"
	"assetproxy/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(p *provider.MockProvider, opts Options) *Service {
	return NewService(p, nil, discardLogger(), opts).WithClock(func() time.Time { return fixedNow })
}

// seed 在 business-images 下登记 n 个资源，created_at 逐个递增。
func seed(p *provider.MockProvider, n int) {
	for i := 0; i < n; i++ {
		p.SetAssets(provider.Asset{
			PublicID:  fmt.Sprintf("business-images/img-%02d", i),
			Filename:  fmt.Sprintf("img-%02d", i),
			Format:    "png",
			Bytes:     int64(100 + i),
			CreatedAt: fixedNow.Add(-time.Duration(n-i) * time.Hour),
			Folder:    "business-images",
		})
	}
}

func TestService_NotInitialized(t *testing.T) {
	var s *Service
	_, err := s.ListPage(context.Background(), PageRequest{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	s = NewService(nil, nil, nil, Options{})
	assert.ErrorIs(t, s.Health(context.Background()), ErrNotInitialized)
}

func TestService_Health(t *testing.T) {
	p := provider.NewMockProvider()
	s := newTestService(p, Options{})
	require.NoError(t, s.Health(context.Background()))

	p.PingErr = errors.New("dial tcp: timeout")
	err := s.Health(context.Background())
	require.Error(t, err)

	perr, ok := AsProvider(err)
	require.True(t, ok)
	assert.Equal(t, "ping", perr.Op)
	assert.Contains(t, err.Error(), "dial tcp: timeout")
	assert.Equal(t, http.StatusInternalServerError, MapHTTPStatus(err))
}

func TestService_Folders(t *testing.T) {
	p := provider.NewMockProvider()
	s := newTestService(p, Options{})

	folders, err := s.Folders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, folders)
	assert.Empty(t, folders)

	p.FoldersValue = []provider.Folder{{Name: "business-images", Path: "business-images"}}
	folders, err = s.Folders(context.Background())
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestService_DeleteOne(t *testing.T) {
	p := provider.NewMockProvider()
	p.SetAssets(provider.Asset{PublicID: "business-images/a", Folder: "business-images"})
	recorder := &audit.Memory{}
	s := NewService(p, recorder, discardLogger(), Options{})

	res, err := s.DeleteOne(context.Background(), "business-images/a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, provider.DestroyOK, res.Result)
	assert.False(t, p.Has("business-images/a"))

	res, err = s.DeleteOne(context.Background(), "business-images/a")
	require.NoError(t, err)
	assert.True(t, res.Success, "not found is caller success")
	assert.Equal(t, provider.DestroyNotFound, res.Result)

	entries, err := s.Deletions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.KindSingle, entries[0].Kind)
	assert.Equal(t, "mock", entries[0].Provider)
	assert.NotEmpty(t, entries[0].ID)
}

func TestService_DeleteOne_Validation(t *testing.T) {
	s := newTestService(provider.NewMockProvider(), Options{})

	_, err := s.DeleteOne(context.Background(), "   ")
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingPublicID, v.Code)
	assert.Equal(t, http.StatusBadRequest, MapHTTPStatus(err))
}

func TestService_DeleteOne_ProviderStatusAndError(t *testing.T) {
	p := provider.NewMockProvider()
	s := newTestService(p, Options{})

	p.DestroyFunc = func(string) (string, error) { return "rate limited", nil }
	res, err := s.DeleteOne(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, res.Success)

	p.DestroyFunc = func(string) (string, error) { return "", errors.New("boom") }
	_, err = s.DeleteOne(context.Background(), "x")
	_, ok := AsProvider(err)
	assert.True(t, ok)
}

func TestService_Deletions_Limit(t *testing.T) {
	s := newTestService(provider.NewMockProvider(), Options{})

	entries, err := s.Deletions(context.Background(), 500)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.Deletions(context.Background(), -1)
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidLimit, v.Code)
}

func dataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func TestService_Upload(t *testing.T) {
	p := provider.NewMockProvider()
	s := newTestService(p, Options{})

	asset, err := s.Upload(context.Background(), UploadInput{
		Image:    dataURI("image/png", []byte("png-bytes")),
		Filename: "logo",
	})
	require.NoError(t, err)
	assert.Equal(t, "business-images/logo", asset.PublicID)
	require.Len(t, p.Uploads, 1)
	assert.Equal(t, DefaultFolder, p.Uploads[0].Folder)

	_, err = s.Upload(context.Background(), UploadInput{Image: "https://example.com/x.png", Folder: "promo/"})
	require.NoError(t, err)
	assert.Equal(t, "promo", p.Uploads[1].Folder)
}

func TestService_Upload_ProviderReturnsNothing(t *testing.T) {
	p := provider.NewMockProvider()
	p.UploadFunc = func(req provider.UploadRequest) (*provider.Asset, error) { return nil, nil }
	s := newTestService(p, Options{})

	asset, err := s.Upload(context.Background(), UploadInput{Image: "https://example.com/x.png"})
	assert.Nil(t, asset)
	pe, ok := AsProvider(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "Failed to upload image", pe.Context)
	assert.ErrorIs(t, err, errNoAsset)
}

func TestService_Upload_Validation(t *testing.T) {
	s := newTestService(provider.NewMockProvider(), Options{})

	cases := map[string]string{
		"empty":      "",
		"bad scheme": "ftp://example.com/x.png",
		"bad type":   dataURI("application/pdf", []byte("%PDF")),
		"too large":  dataURI("image/png", []byte(strings.Repeat("x", 11*1024*1024))),
		"malformed":  "data:image/png;base64",
	}
	for name, image := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Upload(context.Background(), UploadInput{Image: image})
			v, ok := AsValidation(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, CodeInvalidUpload, v.Code)
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Invalid(CodeInvalidLimit, "bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("ctx: %w", Invalid(CodeInvalidPage, "bad")), http.StatusBadRequest},
		{"unsupported source", providerError("upload", "x", provider.ErrUnsupportedSource), http.StatusBadRequest},
		{"provider", providerError("search", "x", errors.New("down")), http.StatusInternalServerError},
		{"unknown", errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapHTTPStatus(tt.err))
		})
	}
}
