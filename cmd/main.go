package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify_vendor_hub/internal/controller"
	"shopify_vendor_hub/internal/metrics"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/realtime"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/internal/router"
	"shopify_vendor_hub/internal/service"
	"shopify_vendor_hub/internal/task"
	"shopify_vendor_hub/pkg/config"
	"shopify_vendor_hub/pkg/database"
	"shopify_vendor_hub/pkg/logger"
	"shopify_vendor_hub/pkg/shopify"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

func main() {
	serve := &cli.Command{
		Name:   "serve",
		Usage:  "启动 HTTP 服务、实时通道与定时通知",
		Action: runServe,
	}

	app := &cli.App{
		Name:   "vendor-hub",
		Usage:  "Shopify 多租户供应商协同后台",
		Action: runServe,
		Commands: []*cli.Command{
			serve,
			{
				Name:   "migrate",
				Usage:  "执行数据库迁移后退出",
				Action: runMigrate,
			},
			{
				Name:   "notify",
				Usage:  "对指定店铺立即执行一轮通知聚合",
				Flags:  []cli.Flag{shopFlag()},
				Action: runNotify,
			},
			{
				Name:   "sync",
				Usage:  "对指定店铺立即执行一次全量订单同步",
				Flags:  []cli.Flag{shopFlag()},
				Action: runSync,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.GetLogger().Error("[Main] 退出", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func shopFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "shop",
		Usage:    "店铺域名，如 demo.myshopify.com",
		Required: true,
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	UoW         *repository.UnitOfWork
	Metrics     *metrics.Metrics
	Services    *Services
	Tasks       *task.TaskManager
	Realtime    *realtime.Manager
	Broadcaster *realtime.RedisBroadcaster
	Redis       *redis.Client
	Controllers *router.Controllers
	SyncLimiter *middleware.SyncRateLimiter
}

// Services 服务集合
type Services struct {
	Auth       *service.AuthService
	Sync       *service.SyncService
	Notify     *service.NotifyService
	Order      *service.OrderService
	Product    *service.ProductService
	Vendor     *service.VendorService
	User       *service.UserService
	Message    *service.MessageService
	Attachment *service.AttachmentService
}

// ==================== 初始化函数 ====================

// bootstrap 配置 -> 日志 -> JWT -> 数据库
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	if _, err := logger.InitLogger(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	}); err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.TTL,
		Issuer:         cfg.JWT.Issuer,
	})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(database.Options{
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           !cfg.IsProduction(),
	}, model.AllModels()...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Dependencies, error) {
	m := metrics.Registry(cfg.Metrics.Namespace)
	uow := repository.NewUnitOfWork(db)

	api := shopify.NewClient(shopify.Config{
		APIKey:     cfg.Shopify.APIKey,
		APISecret:  cfg.Shopify.APISecret,
		APIVersion: cfg.Shopify.APIVersion,
		Timeout:    30 * time.Second,
		Retries:    3,
	})

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	// -------- 后台任务执行器 --------
	runner := task.NewRunner(cfg.Sync.InitialSyncRetries, 30*time.Second)

	// -------- 业务服务 --------
	svc := &Services{
		Sync:    service.NewSyncService(uow, api, cfg.Sync.PageSize, m),
		Notify:  service.NewNotifyService(uow, nil, m),
		Order:   service.NewOrderService(uow.Orders),
		Product: service.NewProductService(uow.Products),
		Vendor:  service.NewVendorService(uow.Vendors),
		User:    service.NewUserService(uow),
		Message: service.NewMessageService(uow),
	}
	svc.Auth = service.NewAuthService(uow, api, svc.Sync, runner, service.AuthConfig{
		APIKey:    cfg.Shopify.APIKey,
		APISecret: cfg.Shopify.APISecret,
		Scopes:    cfg.Shopify.Scopes,
		AppURL:    cfg.AppURL,
	})
	svc.Attachment = service.NewAttachmentService(initObjectStore(ctx, cfg), cfg.Storage.BasePath)

	deps := &Dependencies{
		Config:      cfg,
		DB:          db,
		UoW:         uow,
		Metrics:     m,
		Services:    svc,
		SyncLimiter: middleware.NewSyncRateLimiter(),
	}

	// -------- 实时通道 --------
	opts := realtime.Options{Metrics: m}
	if cfg.Redis.Addr != "" {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("连接 Redis 失败: %w", err)
		}
		deps.Broadcaster = realtime.NewRedisBroadcaster(deps.Redis, realtime.DefaultRedisTopic)
		opts.Broadcaster = deps.Broadcaster
	}
	deps.Realtime = realtime.NewManager(verifyToken, svc.User, svc.Message, opts)
	svc.Notify.SetNotifier(deps.Realtime)

	// -------- 定时任务 --------
	notifyTask := task.NewNotifyTask(uow.Users, svc.Notify, loc, m)
	deps.Tasks = task.NewTaskManager(notifyTask, runner)

	deps.Controllers = initControllers(deps)
	return deps, nil
}

// initObjectStore 未配置存储桶时附件上传不可用
func initObjectStore(ctx context.Context, cfg *config.Config) service.ObjectStore {
	if cfg.Storage.Bucket == "" {
		logger.GetLogger().Warn("[Main] 未配置 S3_BUCKET，附件上传已关闭")
		return nil
	}
	store, err := service.NewS3Store(ctx, &service.StorageConfig{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		PublicURL: cfg.Storage.PublicURL,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		logger.GetLogger().Warn("[Main] 存储服务初始化失败", zap.Error(err))
		return nil
	}
	return store
}

// initControllers 初始化所有控制器
func initControllers(deps *Dependencies) *router.Controllers {
	svc := deps.Services
	return &router.Controllers{
		Auth:    controller.NewAuthController(svc.Auth),
		Order:   controller.NewOrderController(svc.Order),
		Product: controller.NewProductController(svc.Product),
		Vendor:  controller.NewVendorController(svc.Vendor, svc.User),
		Sync:    controller.NewSyncController(svc.Sync, deps.SyncLimiter),
		Notify:  controller.NewNotifyController(svc.Notify),
		Profile: controller.NewProfileController(svc.User),
		Message: controller.NewMessageController(svc.Message, svc.User, svc.Attachment),
		Webhook: controller.NewWebhookController(svc.Sync, svc.Auth, deps.Metrics),
		WS:      controller.NewWSController(deps.Realtime, deps.Config.WSOrigins),
	}
}

func verifyToken(token string) (int64, error) {
	claims, err := middleware.ParseToken(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", name, err)
	}
	return loc, nil
}

// ==================== 命令 ====================

// runServe 启动服务，收到 SIGINT/SIGTERM 后优雅关闭
func runServe(c *cli.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initDependencies(ctx, cfg, db)
	if err != nil {
		return err
	}
	if deps.Redis != nil {
		defer deps.Redis.Close()
	}

	r := router.SetupRouter(deps.Controllers, router.Options{
		WebhookSecret:      cfg.Shopify.APISecret,
		SyncLimiter:        deps.SyncLimiter,
		ManualSyncInterval: cfg.Sync.ManualSyncInterval,
		Metrics:            deps.Metrics,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := deps.Tasks.Start(); err != nil {
		return err
	}

	log := logger.GetLogger()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("[Main] 服务启动", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	})

	if deps.Broadcaster != nil {
		g.Go(func() error {
			return deps.Broadcaster.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("[Main] 正在关闭服务...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		deps.Tasks.Stop(shutdownTimeout)
		if err != nil {
			return fmt.Errorf("服务强制关闭: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("[Main] 服务已退出")
	return nil
}

// runMigrate 迁移在 bootstrap 中完成
func runMigrate(c *cli.Context) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close(db)
	logger.GetLogger().Info("[Main] 迁移完成")
	return nil
}

// runNotify 手动执行一轮通知（无实时推送，消息仅落库）
func runNotify(c *cli.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close(db)

	deps, err := initDependencies(c.Context, cfg, db)
	if err != nil {
		return err
	}
	deps.Services.Notify.SetNotifier(nil)

	shop := c.String("shop")
	result, err := deps.Services.Notify.TriggerNotification(c.Context, shop)
	if err != nil {
		return err
	}
	logger.GetLogger().Info("[Main] 通知完成",
		zap.String("shop", shop),
		zap.Bool("success", result.Success),
		zap.Int("notified", len(result.Notified)),
		zap.String("message", result.Message))
	return nil
}

// runSync 手动执行一次全量订单同步
func runSync(c *cli.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer database.Close(db)

	deps, err := initDependencies(c.Context, cfg, db)
	if err != nil {
		return err
	}

	shop := c.String("shop")
	synced, err := deps.Services.Sync.ManualSync(c.Context, shop)
	if err != nil {
		return err
	}
	logger.GetLogger().Info("[Main] 同步完成", zap.String("shop", shop), zap.Int("synced", synced))
	return nil
}
