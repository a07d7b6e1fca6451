package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/pkg/shopify"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 测试辅助 ====================

func setupTestDB(t *testing.T) (*gorm.DB, *repository.UnitOfWork) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "连接测试数据库失败")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.AllModels()...), "数据库迁移失败")
	return db, repository.NewUnitOfWork(db)
}

func strPtr(s string) *string { return &s }

func seedOwner(t *testing.T, db *gorm.DB, shop string) *model.User {
	u := &model.User{
		Role:        model.RoleStoreOwner,
		Email:       "owner@" + shop,
		Name:        shop,
		ShopDomain:  strPtr(shop),
		AccessToken: "tok-" + shop,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// seedVendorAccount 供应商目录 + 同邮箱的供应商账号
func seedVendorAccount(t *testing.T, db *gorm.DB, shop, name, email, password string) (*model.Vendor, *model.User) {
	v := &model.Vendor{Name: name, ShopDomain: shop, Email: email}
	require.NoError(t, db.Create(v).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Role: model.RoleVendor, Email: email, Name: name, PasswordHash: string(hash)}
	require.NoError(t, db.Create(u).Error)
	return v, u
}

// ==================== 假上游 ====================

type fakeAPI struct {
	mu sync.Mutex

	orderPages  []*shopify.OrderPage
	vendorPages []*shopify.VendorPage
	failOnPage  int // 第 N 次 FetchOrders 返回错误（从 1 开始，0 表示不失败）
	shop        *shopify.ShopInfo
	token       *shopify.AccessTokenResp

	orderCalls  int
	vendorCalls int
	cursors     []string
}

var _ shopify.API = (*fakeAPI)(nil)

var errUpstream = errors.New("upstream unavailable")

func (f *fakeAPI) FetchOrders(ctx context.Context, s shopify.Session, first int, after string) (*shopify.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	f.cursors = append(f.cursors, after)
	if f.failOnPage > 0 && f.orderCalls == f.failOnPage {
		return nil, errUpstream
	}
	if f.orderCalls > len(f.orderPages) {
		return &shopify.OrderPage{}, nil
	}
	return f.orderPages[f.orderCalls-1], nil
}

func (f *fakeAPI) FetchProductVendors(ctx context.Context, s shopify.Session, first int, after string) (*shopify.VendorPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vendorCalls++
	if f.vendorCalls > len(f.vendorPages) {
		return &shopify.VendorPage{}, nil
	}
	return f.vendorPages[f.vendorCalls-1], nil
}

func (f *fakeAPI) FetchShop(ctx context.Context, s shopify.Session) (*shopify.ShopInfo, error) {
	if f.shop == nil {
		return nil, errUpstream
	}
	return f.shop, nil
}

func (f *fakeAPI) ExchangeToken(ctx context.Context, shop, code string) (*shopify.AccessTokenResp, error) {
	if f.token == nil {
		return nil, errUpstream
	}
	return f.token, nil
}

func order(id int64, name string, items ...shopify.LineItem) shopify.Order {
	return shopify.Order{ExternalID: id, Name: name, LineItems: items}
}

func item(productID int64, vendor string, qty int) shopify.LineItem {
	return shopify.LineItem{ProductID: productID, Title: "P" + vendor, VendorName: vendor, Quantity: qty}
}

// ==================== 假后台执行器 ====================

type fakeRunner struct {
	mu   sync.Mutex
	jobs map[string]func(ctx context.Context) error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{jobs: make(map[string]func(ctx context.Context) error)}
}

func (r *fakeRunner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[name] = fn
}

func (r *fakeRunner) run(t *testing.T, name string) error {
	r.mu.Lock()
	fn, ok := r.jobs[name]
	r.mu.Unlock()
	require.True(t, ok, "任务 %s 未提交", name)
	return fn(context.Background())
}

// ==================== 可失败的事务 ====================

var errTxAborted = errors.New("transaction aborted")

// flakyTransactor 第 failOn 次事务在执行完回调后回滚
type flakyTransactor struct {
	inner  repository.Transactor
	failOn int
	calls  int
}

func (f *flakyTransactor) Transaction(ctx context.Context, fn func(tx *repository.UnitOfWork) error) error {
	f.calls++
	if f.calls != f.failOn {
		return f.inner.Transaction(ctx, fn)
	}
	return f.inner.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errTxAborted
	})
}
