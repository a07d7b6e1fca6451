package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shopify_vendor_hub/pkg/logger"

	"go.uber.org/zap"
)

// ==================== Handle 后台任务句柄 ====================

// Handle 脱离请求生命周期运行的后台任务
// Done 关闭后 Err 返回最终结果
type Handle struct {
	Name string
	done chan struct{}
	err  error
}

// Done 任务结束信号
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err 任务结果，未结束时返回 nil
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait 等待任务结束或 ctx 取消
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ==================== Runner ====================

// Runner 启动带重试的后台任务，进程退出时统一取消并等待
type Runner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	retries int
	backoff time.Duration
	wg      sync.WaitGroup
}

// NewRunner 创建后台任务执行器，retries 为失败后的额外尝试次数
func NewRunner(retries int, backoff time.Duration) *Runner {
	if retries < 0 {
		retries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{ctx: ctx, cancel: cancel, retries: retries, backoff: backoff}
}

// Go 启动任务，不关心结果
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.Spawn(name, fn)
}

// Spawn 启动任务并返回句柄
func (r *Runner) Spawn(name string, fn func(ctx context.Context) error) *Handle {
	h := &Handle{Name: name, done: make(chan struct{})}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(h.done)
		h.err = r.run(name, fn)
	}()
	return h
}

func (r *Runner) run(name string, fn func(ctx context.Context) error) error {
	log := logger.GetLogger().With(zap.String("task", name))
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}
		err = safeCall(r.ctx, fn)
		if err == nil {
			log.Info("[Runner] 后台任务完成", zap.Int("attempt", attempt+1))
			return nil
		}
		log.Warn("[Runner] 后台任务失败", zap.Int("attempt", attempt+1), zap.Error(err))
		if r.ctx.Err() != nil {
			return err
		}
	}
	log.Error("[Runner] 后台任务重试耗尽", zap.Int("retries", r.retries), zap.Error(err))
	return err
}

// Shutdown 取消全部任务并等待退出
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}
