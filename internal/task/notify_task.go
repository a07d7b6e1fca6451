package task

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"shopify_vendor_hub/internal/metrics"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/service"
	"shopify_vendor_hub/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ==================== NotifyTask 定时通知任务 ====================

// NotifySchedule 每分钟第 0 秒检查一次
const NotifySchedule = "0 * * * * *"

// tenantTimeout 单个租户的处理上限
const tenantTimeout = 2 * time.Minute

// NotifiableLister 列出配置了通知模式的店主
type NotifiableLister interface {
	ListNotifiable(ctx context.Context) ([]model.User, error)
}

// NotificationTrigger 执行一次通知聚合
type NotificationTrigger interface {
	TriggerNotification(ctx context.Context, shopDomain string) (*service.NotifyResult, error)
}

// NotifyTask 按店主配置的节奏触发通知聚合
type NotifyTask struct {
	users   NotifiableLister
	trigger NotificationTrigger
	metrics *metrics.Metrics
	cron    *cron.Cron
	loc     *time.Location
	now     func() time.Time

	// 上一轮未结束时跳过本轮
	running atomic.Bool
}

// NewNotifyTask 创建通知任务，loc 决定 specific_time 的本地时刻
func NewNotifyTask(users NotifiableLister, trigger NotificationTrigger, loc *time.Location, m *metrics.Metrics) *NotifyTask {
	if loc == nil {
		loc = time.Local
	}
	return &NotifyTask{
		users:   users,
		trigger: trigger,
		metrics: m,
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		loc:     loc,
		now:     time.Now,
	}
}

// Start 启动定时任务
func (t *NotifyTask) Start() error {
	_, err := t.cron.AddFunc(NotifySchedule, func() {
		t.tick(context.Background())
	})
	if err != nil {
		return fmt.Errorf("注册通知任务失败: %w", err)
	}

	t.cron.Start()
	logger.GetLogger().Info("[NotifyTask] 已启动", zap.String("schedule", NotifySchedule))
	return nil
}

// Stop 停止任务并等待正在执行的一轮结束
func (t *NotifyTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	logger.GetLogger().Info("[NotifyTask] 已停止")
}

func (t *NotifyTask) tick(ctx context.Context) {
	if !t.running.CompareAndSwap(false, true) {
		logger.GetLogger().Warn("[NotifyTask] 上一轮仍在执行，跳过")
		t.metrics.SchedulerRun("skipped")
		return
	}
	defer t.running.Store(false)

	if _, err := t.RunOnce(ctx); err != nil {
		t.metrics.SchedulerRun("error")
		return
	}
	t.metrics.SchedulerRun("ok")
}

// RunOnce 评估全部店主并顺序触发，返回触发的租户数
func (t *NotifyTask) RunOnce(ctx context.Context) (int, error) {
	log := logger.GetLogger()

	users, err := t.users.ListNotifiable(ctx)
	if err != nil {
		log.Error("[NotifyTask] 查询店主失败", zap.Error(err))
		return 0, err
	}

	now := t.now()
	triggered := 0
	for i := range users {
		u := &users[i]
		decision := service.ShouldNotify(u, now, t.loc)
		switch decision.Reason {
		case service.ReasonInvalidConfig, service.ReasonInvalidState:
			log.Warn("[NotifyTask] 通知配置异常，跳过",
				zap.String("shop", u.Domain()),
				zap.String("notify_mode", u.Mode()),
				zap.String("notify_value", u.ModeValue()),
				zap.String("reason", decision.Reason))
		}
		if !decision.Trigger {
			continue
		}

		triggered++
		t.runTenant(ctx, u.Domain(), decision.Reason)
	}
	return triggered, nil
}

// runTenant 单租户失败或 panic 不影响其它租户
func (t *NotifyTask) runTenant(ctx context.Context, shopDomain, reason string) {
	log := logger.GetLogger().With(zap.String("shop", shopDomain))
	defer func() {
		if r := recover(); r != nil {
			log.Error("[NotifyTask] 租户处理 panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, tenantTimeout)
	defer cancel()

	res, err := t.trigger.TriggerNotification(tctx, shopDomain)
	if err != nil {
		log.Error("[NotifyTask] 通知失败", zap.String("reason", reason), zap.Error(err))
		return
	}
	log.Info("[NotifyTask] 通知完成",
		zap.String("reason", reason),
		zap.String("message", res.Message),
		zap.Int("entries", len(res.Notified)))
}
