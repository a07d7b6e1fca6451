package router

import (
	"net/http"
	"time"

	"shopify_vendor_hub/internal/controller"
	"shopify_vendor_hub/internal/metrics"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "shopify_vendor_hub/docs"
)

// Controllers 路由依赖的全部控制器
type Controllers struct {
	Auth    *controller.AuthController
	Order   *controller.OrderController
	Product *controller.ProductController
	Vendor  *controller.VendorController
	Sync    *controller.SyncController
	Notify  *controller.NotifyController
	Profile *controller.ProfileController
	Message *controller.MessageController
	Webhook *controller.WebhookController
	WS      *controller.WSController
}

// Options 路由级配置
type Options struct {
	WebhookSecret      string
	SyncLimiter        *middleware.SyncRateLimiter
	ManualSyncInterval time.Duration
	Metrics            *metrics.Metrics
}

// SetupRouter 创建带全局中间件的 gin 引擎并注册路由
func SetupRouter(ctls *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Recovery())
	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers, opts Options) {
	// 1. 运维路由
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. 实时通道（认证在连接内通过 authenticate 事件完成）
	r.GET("/ws", ctls.WS.Serve)

	// 3. API 路由组
	api := r.Group("/api")
	{
		// auth 鉴权组
		auth := api.Group("/auth")
		{
			// GET /api/auth/install?shop=
			auth.GET("/install", ctls.Auth.Install)
			// GET /api/auth/callback
			auth.GET("/callback", ctls.Auth.Callback)
			// POST /api/auth/vendor/login
			auth.POST("/vendor/login", ctls.Auth.VendorLogin)
		}

		// webhook 使用 HMAC 校验而非会话令牌
		onReject := func(topic string) { opts.Metrics.Webhook(topic, "unauthorized") }
		api.POST("/webhooks/shopify", middleware.ShopifyWebhookAuth(opts.WebhookSecret, onReject), ctls.Webhook.Handle)

		authed := api.Group("", middleware.SessionAuth())
		{
			// 任意角色
			authed.GET("/profile", ctls.Profile.Get)
			authed.PUT("/profile", ctls.Profile.Update)

			messages := authed.Group("/messages")
			{
				messages.POST("/attachments", ctls.Message.UploadAttachment)
				messages.GET("/:userId", ctls.Message.Conversation)
			}

			// 店主专属
			owner := authed.Group("", middleware.RequireRole(model.RoleStoreOwner))
			{
				orders := owner.Group("/orders")
				{
					orders.GET("", ctls.Order.List)
					orders.GET("/:id", ctls.Order.GetByID)
				}

				owner.GET("/products", ctls.Product.List)

				vendors := owner.Group("/vendors")
				{
					vendors.GET("", ctls.Vendor.List)
					vendors.PUT("/:id", ctls.Vendor.Update)
					vendors.POST("/:id/account", ctls.Vendor.ProvisionAccount)
				}

				sync := owner.Group("/sync")
				{
					// POST /api/sync/orders 手动同步，按店铺限频
					sync.POST("/orders",
						middleware.SyncRateLimit(opts.SyncLimiter, model.SyncTypeManual, opts.ManualSyncInterval),
						ctls.Sync.TriggerSync)
					sync.GET("/logs", ctls.Sync.Logs)
				}

				owner.POST("/notifications/trigger", ctls.Notify.Trigger)
			}
		}
	}
}
