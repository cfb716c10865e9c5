package assets

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"assetproxy/internal/metrics"
	"assetproxy/internal/provider"
	"assetproxy/internal/search"

	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"
)

// 统计参数。
const (
	// StatsSampleSize 是统计时单次检索的上限，超出部分不参与按大小的统计。
	StatsSampleSize   = 1000
	LargestFilesCount = 10
	RecentWindow      = 7 * 24 * time.Hour
)

// FormatStat 是某一格式的数量与总大小。
type FormatStat struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// FolderStats 是文件夹统计。按大小的字段只覆盖采样到的资源，
// Approximate 为 true 表示远端总数超过了采样数。
type FolderStats struct {
	Name            string                `json:"name"`
	TotalImages     int                   `json:"totalImages"`
	TotalSize       int64                 `json:"totalSize"`
	TotalSizeHuman  string                `json:"totalSizeHuman"`
	AverageSize     int64                 `json:"averageSize"`
	FormatBreakdown map[string]FormatStat `json:"formatBreakdown"`
	LargestFiles    []ImageAsset          `json:"largestFiles"`
	RecentUploads   int                   `json:"recentUploads"`
	SampledImages   int                   `json:"sampledImages"`
	Approximate     bool                  `json:"approximate"`
}

// StatsReport 是 stats 接口的结果。Account 仅在远端提供用量时出现。
type StatsReport struct {
	Folder  FolderStats     `json:"folder"`
	Account *provider.Usage `json:"account,omitempty"`
}

// Stats 检索文件夹（最多 StatsSampleSize 条）并汇总统计；同时尽力获取账户用量。
// 主检索失败则整体失败，用量获取失败只记录日志。
func (s *Service) Stats(ctx context.Context, folder string) (*StatsReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	q := search.Query{
		Filter:     search.Filter{Folder: s.folderOrDefault(folder)},
		SortField:  search.DefaultSortField,
		SortOrder:  search.SortDesc,
		MaxResults: StatsSampleSize,
	}

	var (
		res   *provider.SearchResult
		usage *provider.Usage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = s.search(gctx, "stats", q)
		return err
	})
	g.Go(func() error {
		usage = s.accountUsage(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &StatsReport{
		Folder:  Aggregate(q.Folder, res, s.now()),
		Account: usage,
	}, nil
}

// accountUsage 获取账户用量，任何失败都返回 nil。
func (s *Service) accountUsage(ctx context.Context) *provider.Usage {
	var usage *provider.Usage
	err := s.observe("usage", func() error {
		var err error
		usage, err = s.provider.Usage(ctx)
		if errors.Is(err, provider.ErrUsageUnavailable) {
			return nil
		}
		return err
	})
	if err != nil {
		metrics.IncUsageFetchFailure()
		s.logger.Warn("account usage unavailable", "error", err, "provider", s.provider.Name())
		return nil
	}
	return usage
}

// Aggregate 对一次检索结果计算统计。TotalImages 取远端报告的总数，
// 大小相关的字段只基于返回的资源。
func Aggregate(folder string, res *provider.SearchResult, now time.Time) FolderStats {
	stats := FolderStats{
		Name:            folder,
		FormatBreakdown: map[string]FormatStat{},
		LargestFiles:    []ImageAsset{},
	}
	if res == nil {
		stats.TotalSizeHuman = units.HumanSize(0)
		return stats
	}

	cutoff := now.Add(-RecentWindow)
	for _, a := range res.Assets {
		stats.TotalSize += a.Bytes

		key := strings.ToUpper(a.Format)
		entry := stats.FormatBreakdown[key]
		entry.Count++
		entry.Size += a.Bytes
		stats.FormatBreakdown[key] = entry

		if a.CreatedAt.After(cutoff) {
			stats.RecentUploads++
		}
	}

	bySize := make([]provider.Asset, len(res.Assets))
	copy(bySize, res.Assets)
	sort.SliceStable(bySize, func(i, j int) bool { return bySize[i].Bytes > bySize[j].Bytes })
	if len(bySize) > LargestFilesCount {
		bySize = bySize[:LargestFilesCount]
	}
	stats.LargestFiles = toImageAssets(bySize)

	stats.TotalImages = res.TotalCount
	stats.SampledImages = len(res.Assets)
	stats.Approximate = res.TotalCount > len(res.Assets)
	if stats.TotalImages > 0 {
		stats.AverageSize = int64(math.Round(float64(stats.TotalSize) / float64(stats.TotalImages)))
	}
	stats.TotalSizeHuman = units.HumanSize(float64(stats.TotalSize))
	return stats
}
