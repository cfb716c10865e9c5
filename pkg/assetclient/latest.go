package assetclient

import (
	"context"
	"sync"
)

// Latest 保证“最新一次请求生效”：每次 Begin 分配递增序号并取消上一次仍在进行的请求。
// 零值可用。
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Ticket 标识一次请求。
type Ticket struct {
	seq    uint64
	latest *Latest
	cancel context.CancelFunc
}

// Begin 开始一次新请求，返回的 context 会在更新的请求开始时被取消。
func (l *Latest) Begin(parent context.Context) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	l.cancel = cancel
	return ctx, &Ticket{seq: l.seq, latest: l, cancel: cancel}
}

// IsLatest 判断该请求是否仍是最新的一次。
func (t *Ticket) IsLatest() bool {
	t.latest.mu.Lock()
	defer t.latest.mu.Unlock()
	return t.latest.seq == t.seq
}

// Done 释放请求的 context。
func (t *Ticket) Done() {
	t.cancel()

	t.latest.mu.Lock()
	defer t.latest.mu.Unlock()
	if t.latest.seq == t.seq {
		t.latest.cancel = nil
	}
}
