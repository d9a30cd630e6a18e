package database

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrHandleClosed はクローズ済みのHandleから接続を取得しようとした場合のエラー。
var ErrHandleClosed = errors.New("database handle is closed")

// Handle はストア接続をプロセス全体で1つだけ保持するハンドル。
// 最初のGetで接続を確立し、以降は同じ接続を返す。
// 同時に複数のGetが呼ばれても接続処理はsingleflightで1回にまとめられる。
// 接続に失敗した場合は保持せず、次のGetで再試行する。
type Handle[T any] struct {
	open  func(ctx context.Context) (T, error)
	close func(ctx context.Context, conn T) error

	group singleflight.Group

	mu     sync.RWMutex
	conn   T
	ready  bool
	closed bool
}

// NewHandle はHandleを生成する。この時点では接続しない。
func NewHandle[T any](
	open func(ctx context.Context) (T, error),
	close func(ctx context.Context, conn T) error,
) *Handle[T] {
	return &Handle[T]{open: open, close: close}
}

// Get は接続を返す。未接続の場合は接続を確立する。
// 呼び出し元のctxがキャンセルされた場合は待機をやめてctx.Err()を返す。
func (h *Handle[T]) Get(ctx context.Context) (T, error) {
	var zero T

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return zero, ErrHandleClosed
	}
	if h.ready {
		conn := h.conn
		h.mu.RUnlock()
		return conn, nil
	}
	h.mu.RUnlock()

	ch := h.group.DoChan("connect", func() (any, error) {
		h.mu.RLock()
		if h.ready {
			conn := h.conn
			h.mu.RUnlock()
			return conn, nil
		}
		h.mu.RUnlock()

		// 接続処理は待機中の他の呼び出し元と共有するため、個別のキャンセルを伝播させない。
		conn, err := h.open(context.WithoutCancel(ctx))
		if err != nil {
			return zero, err
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			_ = h.close(context.WithoutCancel(ctx), conn)
			return zero, ErrHandleClosed
		}
		h.conn = conn
		h.ready = true
		return conn, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Close は確立済みの接続を閉じる。複数回呼んでも安全。
func (h *Handle[T]) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if !h.ready {
		return nil
	}
	h.ready = false
	return h.close(ctx, h.conn)
}
