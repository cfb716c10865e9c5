package assets

import (
	"context"
	"fmt"
	"strings"

	"assetproxy/internal/audit"
	"assetproxy/internal/metrics"
	"assetproxy/internal/provider"
)

// BatchSize 是单次批量删除的标识符数量上限。
const BatchSize = 100

// StatusNotReturned 标记远端响应中缺失的标识符。
const StatusNotReturned = "not_returned"

// SuccessPolicy 决定批量删除何时整体视为成功。
type SuccessPolicy string

const (
	// PolicyAnySucceeded 至少删除成功一个即视为成功。
	PolicyAnySucceeded SuccessPolicy = "any"
	// PolicyAllSucceeded 要求全部删除成功。
	PolicyAllSucceeded SuccessPolicy = "all"
)

// ParseSuccessPolicy 解析配置值，空值返回默认策略。
func ParseSuccessPolicy(raw string) (SuccessPolicy, error) {
	switch SuccessPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return PolicyAnySucceeded, nil
	case PolicyAnySucceeded:
		return PolicyAnySucceeded, nil
	case PolicyAllSucceeded:
		return PolicyAllSucceeded, nil
	default:
		return "", fmt.Errorf("unsupported success policy %q (must be any or all)", raw)
	}
}

// Succeeded 按策略判断整体结果。
func (p SuccessPolicy) Succeeded(successful, failed int) bool {
	if p == PolicyAllSucceeded {
		return successful > 0 && failed == 0
	}
	return successful > 0
}

// ChunkResult 是一个批次的结果：成功时为逐项状态，整批失败时为错误信息。
type ChunkResult struct {
	Batch   int               `json:"batch"`
	Size    int               `json:"size"`
	Deleted map[string]string `json:"deleted,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// BatchSummary 是批量删除的汇总。Successful + Failed 不超过 TotalRequested。
type BatchSummary struct {
	TotalRequested int           `json:"total_requested"`
	Successful     int           `json:"successful"`
	Failed         int           `json:"failed"`
	Policy         SuccessPolicy `json:"policy"`
	Success        bool          `json:"-"`
	Results        []ChunkResult `json:"results"`
}

// Chunk 按原有顺序切分为不超过 size 的连续分组。
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// DeleteMany 按批次顺序删除。某批整体失败时该批全部计为失败，后续批次继续执行，不重试。
func (s *Service) DeleteMany(ctx context.Context, ids []string) (*BatchSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, Invalid(CodeMissingPublicIDs, "public_ids must be a non-empty array")
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, Invalid(CodeInvalidPublicID, "public_ids[%d] must be a non-empty string", i)
		}
	}

	summary := &BatchSummary{
		TotalRequested: len(ids),
		Policy:         s.opts.SuccessPolicy,
		Results:        []ChunkResult{},
	}

	for i, chunk := range Chunk(ids, BatchSize) {
		result := ChunkResult{Batch: i + 1, Size: len(chunk)}

		var statuses map[string]string
		err := s.observe("delete_assets", func() error {
			var err error
			statuses, err = s.provider.DeleteAssets(ctx, chunk)
			return err
		})
		if err != nil {
			result.Error = err.Error()
			summary.Failed += len(chunk)
			summary.Results = append(summary.Results, result)

			metrics.IncDeleteChunkFailure()
			metrics.AddDeletions(metrics.OutcomeFailed, len(chunk))
			s.logger.Error("delete chunk failed",
				"batch", result.Batch, "size", len(chunk), "error", err, "provider", s.provider.Name())
			continue
		}

		result.Deleted = make(map[string]string, len(chunk))
		for _, id := range chunk {
			status, ok := statuses[id]
			if !ok {
				status = StatusNotReturned
			}
			result.Deleted[id] = status

			switch status {
			case provider.StatusDeleted:
				summary.Successful++
				metrics.AddDeletions(metrics.OutcomeDeleted, 1)
			case provider.StatusNotFound:
				summary.Failed++
				metrics.AddDeletions(metrics.OutcomeNotFound, 1)
			default:
				summary.Failed++
				metrics.AddDeletions(metrics.OutcomeFailed, 1)
			}
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Success = summary.Policy.Succeeded(summary.Successful, summary.Failed)

	s.logger.Info("batch delete finished",
		"total", summary.TotalRequested,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"policy", summary.Policy,
		"success", summary.Success,
	)
	s.recordAudit(ctx, audit.KindBatch, ids, summary.Successful, summary.Failed, summary.Success, summary.Results)

	return summary, nil
}

// Message 返回面向用户的摘要。
func (b *BatchSummary) Message() string {
	return fmt.Sprintf("Deleted %d images successfully, %d failed", b.Successful, b.Failed)
}
