package assets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"assetproxy/internal/audit"
	"assetproxy/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("business-images/img-%03d", i)
	}
	return ids
}

func TestChunk(t *testing.T) {
	for _, n := range []int{0, 1, 99, 100, 101, 250, 1000} {
		ids := makeIDs(n)
		chunks := Chunk(ids, BatchSize)

		total := 0
		var flat []string
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), BatchSize)
			total += len(c)
			flat = append(flat, c...)
		}
		assert.Equal(t, n, total)
		assert.Equal(t, (n+BatchSize-1)/BatchSize, len(chunks))
		if n > 0 {
			assert.Equal(t, ids, flat, "order preserved")
		}
	}
}

func TestParseSuccessPolicy(t *testing.T) {
	p, err := ParseSuccessPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAnySucceeded, p)

	p, err = ParseSuccessPolicy(" ALL ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAllSucceeded, p)

	_, err = ParseSuccessPolicy("most")
	assert.Error(t, err)

	assert.True(t, PolicyAnySucceeded.Succeeded(1, 99))
	assert.False(t, PolicyAnySucceeded.Succeeded(0, 0))
	assert.False(t, PolicyAllSucceeded.Succeeded(1, 1))
	assert.True(t, PolicyAllSucceeded.Succeeded(3, 0))
}

func TestDeleteMany_SecondBatchFails(t *testing.T) {
	p := provider.NewMockProvider()
	calls := 0
	p.DeleteFunc = func(batch []string) (map[string]string, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("connection reset")
		}
		out := make(map[string]string, len(batch))
		for _, id := range batch {
			out[id] = provider.StatusDeleted
		}
		return out, nil
	}
	recorder := &audit.Memory{}
	s := NewService(p, recorder, discardLogger(), Options{})

	summary, err := s.DeleteMany(context.Background(), makeIDs(150))
	require.NoError(t, err)

	assert.Equal(t, 150, summary.TotalRequested)
	assert.Equal(t, 100, summary.Successful)
	assert.Equal(t, 50, summary.Failed)
	assert.True(t, summary.Success)
	require.Len(t, summary.Results, 2)
	assert.Len(t, summary.Results[0].Deleted, 100)
	assert.Equal(t, 2, summary.Results[1].Batch)
	assert.Equal(t, "connection reset", summary.Results[1].Error)
	assert.Nil(t, summary.Results[1].Deleted)
	assert.Equal(t, "Deleted 100 images successfully, 50 failed", summary.Message())

	require.Len(t, p.DeleteCalls, 2)
	assert.Len(t, p.DeleteCalls[0], 100)
	assert.Len(t, p.DeleteCalls[1], 50)

	entries, _ := recorder.List(context.Background(), 10)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.KindBatch, entries[0].Kind)
	assert.Equal(t, 150, entries[0].TotalRequested)
	assert.Equal(t, "any", entries[0].SuccessPolicy)
}

func TestDeleteMany_AllChunksFail(t *testing.T) {
	p := provider.NewMockProvider()
	p.DeleteFunc = func([]string) (map[string]string, error) { return nil, errors.New("down") }
	s := newTestService(p, Options{})

	summary, err := s.DeleteMany(context.Background(), makeIDs(230))
	require.NoError(t, err)
	assert.Equal(t, 230, summary.Failed)
	assert.Zero(t, summary.Successful)
	assert.False(t, summary.Success)
	assert.Len(t, summary.Results, 3)
	assert.Len(t, p.DeleteCalls, 3, "no short-circuit and no retry")
}

func TestDeleteMany_StatusClassification(t *testing.T) {
	p := provider.NewMockProvider()
	p.SetAssets(
		provider.Asset{PublicID: "a", Folder: "f"},
		provider.Asset{PublicID: "b", Folder: "f"},
	)
	s := newTestService(p, Options{})

	summary, err := s.DeleteMany(context.Background(), []string{"a", "missing", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, provider.StatusNotFound, summary.Results[0].Deleted["missing"])
	assert.LessOrEqual(t, summary.Successful+summary.Failed, summary.TotalRequested)
}

func TestDeleteMany_UnechoedAndDuplicateIDs(t *testing.T) {
	p := provider.NewMockProvider()
	p.DeleteFunc = func(batch []string) (map[string]string, error) {
		return map[string]string{"a": provider.StatusDeleted}, nil
	}
	s := newTestService(p, Options{SuccessPolicy: PolicyAllSucceeded})

	summary, err := s.DeleteMany(context.Background(), []string{"a", "a", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRequested)
	assert.Equal(t, 2, summary.Successful, "duplicates count once per occurrence")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, StatusNotReturned, summary.Results[0].Deleted["ghost"])
	assert.False(t, summary.Success, "all policy requires zero failures")
	assert.Equal(t, PolicyAllSucceeded, summary.Policy)
}

func TestDeleteMany_Validation(t *testing.T) {
	p := provider.NewMockProvider()
	s := newTestService(p, Options{})

	_, err := s.DeleteMany(context.Background(), nil)
	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeMissingPublicIDs, v.Code)

	_, err = s.DeleteMany(context.Background(), []string{"a", " "})
	v, ok = AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidPublicID, v.Code)

	assert.Empty(t, p.DeleteCalls, "validation happens before any remote call")
}
