package task

import (
	"context"
	"time"

	"shopify_vendor_hub/pkg/logger"

	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理定时通知与脱离请求的后台任务
type TaskManager struct {
	notifyTask *NotifyTask
	runner     *Runner
}

// NewTaskManager 创建任务管理器，notifyTask 为 nil 时不启动定时通知
func NewTaskManager(notifyTask *NotifyTask, runner *Runner) *TaskManager {
	return &TaskManager{notifyTask: notifyTask, runner: runner}
}

// Runner 后台任务执行器
func (tm *TaskManager) Runner() *Runner {
	return tm.runner
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	logger.GetLogger().Info("[TaskManager] 正在启动后台任务...")
	if tm.notifyTask != nil {
		if err := tm.notifyTask.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Stop 停止定时任务，取消并等待后台任务
func (tm *TaskManager) Stop(timeout time.Duration) {
	log := logger.GetLogger()
	log.Info("[TaskManager] 正在停止后台任务...")

	if tm.notifyTask != nil {
		tm.notifyTask.Stop()
	}
	if tm.runner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := tm.runner.Shutdown(ctx); err != nil {
			log.Warn("[TaskManager] 后台任务未在时限内退出", zap.Error(err))
		}
	}
	log.Info("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerNotifyCycle 立即执行一轮通知检查
func (tm *TaskManager) TriggerNotifyCycle(ctx context.Context) (int, error) {
	if tm.notifyTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.notifyTask.RunOnce(ctx)
}

// ==================== 错误定义 ====================

// TaskError 任务错误
type TaskError string

func (e TaskError) Error() string {
	return string(e)
}

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
