package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Kind 区分单个删除与批量删除。
type Kind string

const (
	KindSingle Kind = "single"
	KindBatch  Kind = "batch"
)

// Entry 是一次删除作业的审计记录。资源本身仍以远端存储为准。
type Entry struct {
	ID             string          `json:"id"`
	Kind           Kind            `json:"kind"`
	Provider       string          `json:"provider"`
	RequestID      string          `json:"request_id,omitempty"`
	SuccessPolicy  string          `json:"success_policy"`
	TotalRequested int             `json:"total_requested"`
	Successful     int             `json:"successful"`
	Failed         int             `json:"failed"`
	Success        bool            `json:"success"`
	PublicIDs      []string        `json:"public_ids"`
	Results        json.RawMessage `json:"results,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Recorder 持久化删除审计。
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Noop 在审计关闭时使用，什么也不做。
type Noop struct{}

func (Noop) Record(ctx context.Context, entry *Entry) error { return nil }

func (Noop) List(ctx context.Context, limit int) ([]Entry, error) { return []Entry{}, nil }

// Memory 是进程内实现，用于测试与本地开发。
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

// List 按时间倒序返回最近的记录。
func (m *Memory) List(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.entries[i])
	}
	return out, nil
}

var (
	_ Recorder = Noop{}
	_ Recorder = (*Memory)(nil)
)
