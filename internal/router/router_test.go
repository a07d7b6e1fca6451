package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"shopify_vendor_hub/internal/controller"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/realtime"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/internal/service"
	"shopify_vendor_hub/pkg/shopify"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testShop          = "demo.myshopify.com"
	testWebhookSecret = "whsec_test"
)

// ==================== 假上游 ====================

type stubAPI struct {
	orders []shopify.Order
}

func (s *stubAPI) FetchOrders(ctx context.Context, sess shopify.Session, first int, after string) (*shopify.OrderPage, error) {
	return &shopify.OrderPage{Orders: s.orders}, nil
}

func (s *stubAPI) FetchProductVendors(ctx context.Context, sess shopify.Session, first int, after string) (*shopify.VendorPage, error) {
	return &shopify.VendorPage{}, nil
}

func (s *stubAPI) FetchShop(ctx context.Context, sess shopify.Session) (*shopify.ShopInfo, error) {
	return &shopify.ShopInfo{Name: "Demo"}, nil
}

func (s *stubAPI) ExchangeToken(ctx context.Context, shop, code string) (*shopify.AccessTokenResp, error) {
	return &shopify.AccessTokenResp{AccessToken: "tok"}, nil
}

// ==================== 集成测试套件 ====================

type IntegrationSuite struct {
	DB     *gorm.DB
	UoW    *repository.UnitOfWork
	API    *stubAPI
	Router *gin.Engine
	Owner  *model.User
	T      *testing.T
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	uow := repository.NewUnitOfWork(db)
	api := &stubAPI{}

	syncSvc := service.NewSyncService(uow, api, 50, nil)
	authSvc := service.NewAuthService(uow, api, syncSvc, nil, service.AuthConfig{
		APIKey: "key", APISecret: "secret", AppURL: "https://hub.example.com",
	})
	userSvc := service.NewUserService(uow)
	msgSvc := service.NewMessageService(uow)
	notifySvc := service.NewNotifyService(uow, nil, nil)
	limiter := middleware.NewSyncRateLimiter()

	verify := func(token string) (int64, error) {
		claims, err := middleware.ParseToken(token)
		if err != nil {
			return 0, err
		}
		return claims.UserID, nil
	}
	manager := realtime.NewManager(verify, userSvc, msgSvc, realtime.Options{})
	notifySvc.SetNotifier(manager)

	ctls := &Controllers{
		Auth:    controller.NewAuthController(authSvc),
		Order:   controller.NewOrderController(service.NewOrderService(uow.Orders)),
		Product: controller.NewProductController(service.NewProductService(uow.Products)),
		Vendor:  controller.NewVendorController(service.NewVendorService(uow.Vendors), userSvc),
		Sync:    controller.NewSyncController(syncSvc, limiter),
		Notify:  controller.NewNotifyController(notifySvc),
		Profile: controller.NewProfileController(userSvc),
		Message: controller.NewMessageController(msgSvc, userSvc, service.NewAttachmentService(nil, "test")),
		Webhook: controller.NewWebhookController(syncSvc, authSvc, nil),
		WS:      controller.NewWSController(manager, nil),
	}
	r := SetupRouter(ctls, Options{
		WebhookSecret:      testWebhookSecret,
		SyncLimiter:        limiter,
		ManualSyncInterval: time.Minute,
	})

	domain := testShop
	owner := &model.User{
		Role:        model.RoleStoreOwner,
		Email:       "owner@" + testShop,
		Name:        "Demo",
		ShopDomain:  &domain,
		AccessToken: "tok",
	}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("创建店主失败: %v", err)
	}

	return &IntegrationSuite{DB: db, UoW: uow, API: api, Router: r, Owner: owner, T: t}
}

func (s *IntegrationSuite) token(u *model.User) string {
	tok, _, err := middleware.GenerateAccessToken(u.ID, u.Email, u.Role, u.Domain())
	if err != nil {
		s.T.Fatalf("签发令牌失败: %v", err)
	}
	return tok
}

func (s *IntegrationSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *IntegrationSuite) webhook(topic, shop string, payload interface{}, secret string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderShopifyTopic, topic)
	req.Header.Set(middleware.HeaderShopifyDomain, shop)
	req.Header.Set(middleware.HeaderShopifyHmac, shopify.SignWebhook(body, secret))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法 JSON: %v, body=%s", err, w.Body.String())
	}
	return resp
}

func restOrder(id int64, items ...shopify.RESTLineItem) shopify.RESTOrder {
	return shopify.RESTOrder{ID: id, Name: fmt.Sprintf("#%d", id), LineItems: items}
}

func restItem(id, productID int64, vendor string, qty int) shopify.RESTLineItem {
	return shopify.RESTLineItem{ID: id, Title: "Mug", Vendor: vendor, Quantity: qty, ProductID: &productID}
}

// ==================== 运维路由 ====================

func TestIntegration_Ops(t *testing.T) {
	suite := NewIntegrationSuite(t)

	t.Run("HealthCheck", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/healthz", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("健康检查失败: %d", w.Code)
		}
		if rid := w.Header().Get("X-Request-ID"); rid == "" {
			t.Error("响应缺少 X-Request-ID")
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/metrics", "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("指标端点失败: %d", w.Code)
		}
	})
}

// ==================== Webhook 集成测试 ====================

func TestIntegration_Webhook(t *testing.T) {
	suite := NewIntegrationSuite(t)

	t.Run("BadSignature", func(t *testing.T) {
		w := suite.webhook("orders/create", testShop, restOrder(1, restItem(11, 100, "Acme", 1)), "wrong-secret")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("签名错误应返回 401: got %d", w.Code)
		}
		var count int64
		suite.DB.Model(&model.Order{}).Count(&count)
		if count != 0 {
			t.Error("签名错误时不应写入订单")
		}
	})

	t.Run("OrderCreateIdempotent", func(t *testing.T) {
		payload := restOrder(1001, restItem(11, 100, "Acme", 2), restItem(12, 101, "Beta", 1))
		for i := 0; i < 2; i++ {
			w := suite.webhook("orders/create", testShop, payload, testWebhookSecret)
			if w.Code != http.StatusOK {
				t.Fatalf("第 %d 次 webhook 失败: %d, %s", i+1, w.Code, w.Body.String())
			}
		}

		var orders, items int64
		suite.DB.Model(&model.Order{}).Where("shopify_order_id = ?", 1001).Count(&orders)
		suite.DB.Model(&model.OrderLineItem{}).Count(&items)
		if orders != 1 || items != 2 {
			t.Errorf("重复 webhook 不应产生重复数据: orders=%d items=%d", orders, items)
		}

		var logs int64
		suite.DB.Model(&model.SyncLog{}).Where("sync_type = ?", model.SyncTypeWebhook).Count(&logs)
		if logs != 2 {
			t.Errorf("每次 webhook 记录一条同步日志: got %d", logs)
		}
	})

	t.Run("UnknownShopIgnored", func(t *testing.T) {
		w := suite.webhook("orders/updated", "ghost.myshopify.com", restOrder(2002), testWebhookSecret)
		if w.Code != http.StatusOK {
			t.Fatalf("未安装店铺应直接确认: %d", w.Code)
		}
		if msg := decode(t, w)["message"]; msg != "ignored" {
			t.Errorf("期望 ignored: got %v", msg)
		}
	})

	t.Run("InvalidShopDomain", func(t *testing.T) {
		w := suite.webhook("orders/create", "evil.com", restOrder(3003), testWebhookSecret)
		if w.Code != http.StatusBadRequest {
			t.Errorf("非法域名应返回 400: got %d", w.Code)
		}
	})

	t.Run("Uninstall", func(t *testing.T) {
		w := suite.webhook("app/uninstalled", testShop, map[string]string{"domain": testShop}, testWebhookSecret)
		if w.Code != http.StatusOK {
			t.Fatalf("卸载 webhook 失败: %d", w.Code)
		}
		var owners, orders int64
		suite.DB.Model(&model.User{}).Where("shop_domain = ?", testShop).Count(&owners)
		suite.DB.Model(&model.Order{}).Where("shop_domain = ?", testShop).Count(&orders)
		if owners != 0 || orders != 0 {
			t.Errorf("卸载后租户数据应被清除: owners=%d orders=%d", owners, orders)
		}
	})
}

// ==================== 鉴权与租户隔离 ====================

func TestIntegration_Auth(t *testing.T) {
	suite := NewIntegrationSuite(t)

	t.Run("MissingToken", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/api/orders", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("缺少令牌应返回 401: got %d", w.Code)
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/api/profile", "not-a-jwt", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("无效令牌应返回 401: got %d", w.Code)
		}
	})

	t.Run("InstallRejectsBadShop", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/api/auth/install?shop=evil.com", "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("非法店铺应返回 400: got %d", w.Code)
		}
	})

	t.Run("VendorLoginAndRoleGuard", func(t *testing.T) {
		vendor := &model.Vendor{Name: "Acme", ShopDomain: testShop, Email: "acme@example.com"}
		suite.DB.Create(vendor)

		ownerTok := suite.token(suite.Owner)
		w := suite.do(http.MethodPost, fmt.Sprintf("/api/vendors/%d/account", vendor.ID), ownerTok,
			map[string]string{"password": "password1"})
		if w.Code != http.StatusOK {
			t.Fatalf("开通供应商账号失败: %d, %s", w.Code, w.Body.String())
		}

		w = suite.do(http.MethodPost, "/api/auth/vendor/login", "",
			map[string]string{"email": "acme@example.com", "password": "wrong-pass"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("密码错误应返回 401: got %d", w.Code)
		}

		w = suite.do(http.MethodPost, "/api/auth/vendor/login", "",
			map[string]string{"email": "acme@example.com", "password": "password1"})
		if w.Code != http.StatusOK {
			t.Fatalf("供应商登录失败: %d, %s", w.Code, w.Body.String())
		}
		data := decode(t, w)["data"].(map[string]interface{})
		vendorTok := data["access_token"].(string)

		w = suite.do(http.MethodGet, "/api/orders", vendorTok, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("供应商访问店主接口应返回 403: got %d", w.Code)
		}

		w = suite.do(http.MethodGet, "/api/profile", vendorTok, nil)
		if w.Code != http.StatusOK {
			t.Errorf("供应商读取资料失败: %d", w.Code)
		}

		w = suite.do(http.MethodPut, "/api/profile", vendorTok,
			map[string]string{"notify_mode": model.NotifyModeEveryXHours, "notify_value": "2"})
		if w.Code != http.StatusForbidden {
			t.Errorf("供应商不能配置通知: got %d", w.Code)
		}
	})

	t.Run("CrossTenantNotFound", func(t *testing.T) {
		other := &model.Order{ShopifyOrderID: 9009, Name: "#9009", ShopDomain: "other.myshopify.com"}
		suite.DB.Create(other)

		w := suite.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", other.ID), suite.token(suite.Owner), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("其它店铺的订单应返回 404: got %d", w.Code)
		}
	})
}

// ==================== 店主 API ====================

func TestIntegration_OwnerEndpoints(t *testing.T) {
	suite := NewIntegrationSuite(t)
	tok := suite.token(suite.Owner)

	suite.API.orders = []shopify.Order{
		{ExternalID: 1, Name: "#1", LineItems: []shopify.LineItem{{ProductID: 100, Title: "Mug", VendorName: "Acme", Quantity: 1}}},
		{ExternalID: 2, Name: "#2", LineItems: []shopify.LineItem{{ProductID: 101, Title: "Cup", VendorName: "Acme", Quantity: 3}}},
	}

	t.Run("ManualSyncAndRateLimit", func(t *testing.T) {
		w := suite.do(http.MethodPost, "/api/sync/orders", tok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("手动同步失败: %d, %s", w.Code, w.Body.String())
		}
		data := decode(t, w)["data"].(map[string]interface{})
		if data["synced"].(float64) != 2 {
			t.Errorf("同步数量错误: got %v", data["synced"])
		}

		w = suite.do(http.MethodPost, "/api/sync/orders", tok, nil)
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("冷却期内应返回 429: got %d", w.Code)
		}
		if w.Header().Get("Retry-After") == "" {
			t.Error("429 响应缺少 Retry-After")
		}
	})

	t.Run("ListOrders", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/api/orders?limit=1", tok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("获取订单列表失败: %d", w.Code)
		}
		resp := decode(t, w)
		pagination := resp["pagination"].(map[string]interface{})
		if pagination["total"].(float64) != 2 || pagination["total_pages"].(float64) != 2 {
			t.Errorf("分页信息错误: %v", pagination)
		}
		if items := resp["data"].([]interface{}); len(items) != 1 {
			t.Errorf("每页数量错误: got %d", len(items))
		}
	})

	t.Run("ListProductsAndVendors", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/api/products", tok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("获取商品列表失败: %d", w.Code)
		}
		if total := decode(t, w)["pagination"].(map[string]interface{})["total"].(float64); total != 2 {
			t.Errorf("商品数量错误: got %v", total)
		}

		w = suite.do(http.MethodGet, "/api/vendors?search=acm", tok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("获取供应商列表失败: %d", w.Code)
		}
	})

	t.Run("SyncLogs", func(t *testing.T) {
		w := suite.do(http.MethodGet, "/api/sync/logs?sync_type=manual", tok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("获取同步日志失败: %d", w.Code)
		}
		if total := decode(t, w)["pagination"].(map[string]interface{})["total"].(float64); total != 1 {
			t.Errorf("同步日志数量错误: got %v", total)
		}
	})

	t.Run("TriggerNotification", func(t *testing.T) {
		w := suite.do(http.MethodPost, "/api/notifications/trigger", tok, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("触发通知失败: %d, %s", w.Code, w.Body.String())
		}
		// Acme 尚无账号，明细保持待通知
		var pending int64
		suite.DB.Model(&model.OrderLineItem{}).Where("notification = ?", false).Count(&pending)
		if pending != 2 {
			t.Errorf("无账号供应商的明细应保持待通知: got %d", pending)
		}
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		w := suite.do(http.MethodPut, "/api/profile", tok,
			map[string]string{"notify_mode": model.NotifyModeSpecificTime, "notify_value": "9 AM"})
		if w.Code != http.StatusOK {
			t.Fatalf("更新通知设置失败: %d, %s", w.Code, w.Body.String())
		}

		w = suite.do(http.MethodPut, "/api/profile", tok,
			map[string]string{"notify_value": "nine"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("非法时刻应返回 400: got %d", w.Code)
		}
	})
}

// ==================== 并发测试 ====================

func TestIntegration_Concurrency(t *testing.T) {
	suite := NewIntegrationSuite(t)

	t.Run("ConcurrentWebhooks", func(t *testing.T) {
		payload := restOrder(5005, restItem(51, 500, "Acme", 1))

		var wg sync.WaitGroup
		codes := make(chan int, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes <- suite.webhook("orders/updated", testShop, payload, testWebhookSecret).Code
			}()
		}
		wg.Wait()
		close(codes)

		for code := range codes {
			if code != http.StatusOK {
				t.Errorf("并发 webhook 失败: %d", code)
			}
		}

		var orders, items int64
		suite.DB.Model(&model.Order{}).Where("shopify_order_id = ?", 5005).Count(&orders)
		suite.DB.Model(&model.OrderLineItem{}).Count(&items)
		if orders != 1 || items != 1 {
			t.Errorf("并发写入产生重复数据: orders=%d items=%d", orders, items)
		}
	})
}
