package service

import (
	"context"
	"errors"
	"testing"

	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/pkg/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShop = "demo.myshopify.com"

func TestSyncOrder_Idempotent(t *testing.T) {
	db, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	o := order(1001, "#1001", item(77, "Acme", 2), item(78, "Acme", 1))
	require.NoError(t, svc.SyncOrder(ctx, testShop, o))
	require.NoError(t, svc.SyncOrder(ctx, testShop, o))

	var orders, products, vendors, items int64
	db.Model(&model.Order{}).Count(&orders)
	db.Model(&model.Product{}).Count(&products)
	db.Model(&model.Vendor{}).Count(&vendors)
	db.Model(&model.OrderLineItem{}).Count(&items)

	assert.Equal(t, int64(1), orders, "重复同步不应产生新订单")
	assert.Equal(t, int64(2), products)
	assert.Equal(t, int64(1), vendors, "同名供应商在店铺内唯一")
	assert.Equal(t, int64(2), items)
}

func TestSyncOrder_ProductRefreshKeepsID(t *testing.T) {
	_, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	first := item(77, "Acme", 1)
	first.ImageURL = "https://cdn/mug.png"
	require.NoError(t, svc.SyncOrder(ctx, testShop, order(1, "#1", first)))

	before, err := uow.Products.FindByShopifyID(ctx, 77)
	require.NoError(t, err)

	// webhook 载荷没有图片，供应商也变了
	second := item(77, "Globex", 1)
	second.Title = "Mug v2"
	require.NoError(t, svc.SyncOrder(ctx, testShop, order(2, "#2", second)))

	after, err := uow.Products.FindByShopifyID(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "商品内部 ID 应保持不变")
	assert.Equal(t, "Mug v2", after.Title)
	assert.Equal(t, "Globex", after.VendorName)
	assert.Equal(t, "https://cdn/mug.png", after.ImageURL, "空图片不覆盖已有图片")
	require.NotNil(t, after.VendorID)

	globex, err := uow.Vendors.FindByNameAndShop(ctx, "Globex", testShop)
	require.NoError(t, err)
	assert.Equal(t, globex.ID, *after.VendorID)
}

func TestSyncOrder_MergesVariantsAndSkipsCustomItems(t *testing.T) {
	db, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	small := item(77, "Acme", 2)
	small.VariantID = 1
	large := item(77, "Acme", 3)
	large.VariantID = 2
	custom := shopify.LineItem{Title: "Gift wrap", Quantity: 1}

	require.NoError(t, svc.SyncOrder(ctx, testShop, order(1, "#1", small, large, custom)))

	var items []model.OrderLineItem
	db.Find(&items)
	require.Len(t, items, 1, "同一商品的多个变体合并为一条明细，自定义商品不入库")
	assert.Equal(t, 5, items[0].Quantity)
}

func TestSyncOrder_NoVendorLeavesProductUnlinked(t *testing.T) {
	_, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	require.NoError(t, svc.SyncOrder(ctx, testShop, order(1, "#1", item(90, "", 1))))

	p, err := uow.Products.FindByShopifyID(ctx, 90)
	require.NoError(t, err)
	assert.Nil(t, p.VendorID)
	count, _ := uow.Vendors.CountByShop(ctx, testShop)
	assert.Zero(t, count)
}

func TestSyncAllOrders_Paginates(t *testing.T) {
	_, uow := setupTestDB(t)
	api := &fakeAPI{orderPages: []*shopify.OrderPage{
		{Orders: []shopify.Order{order(1, "#1", item(10, "Acme", 1))}, HasNextPage: true, EndCursor: "c1"},
		{Orders: []shopify.Order{order(2, "#2", item(11, "Beta", 1)), order(3, "#3", item(10, "Acme", 4))}},
	}}
	svc := NewSyncService(uow, api, 10, nil)
	ctx := context.Background()

	n, err := svc.SyncAllOrders(ctx, shopify.Session{Shop: testShop, AccessToken: "tok"}, model.SyncTypeManual)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"", "c1"}, api.cursors)

	logs, total, err := svc.ListLogs(ctx, repository.SyncLogFilter{ShopDomain: testShop})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.SyncStatusSuccess, logs[0].Status)
	assert.Equal(t, 3, logs[0].SyncedCount)
	assert.NotNil(t, logs[0].CompletedAt)
}

func TestSyncAllOrders_UpstreamFailureStopsBatch(t *testing.T) {
	db, uow := setupTestDB(t)
	api := &fakeAPI{
		orderPages: []*shopify.OrderPage{
			{Orders: []shopify.Order{order(1, "#1", item(10, "Acme", 1))}, HasNextPage: true, EndCursor: "c1"},
		},
		failOnPage: 2,
	}
	svc := NewSyncService(uow, api, 10, nil)
	ctx := context.Background()

	n, err := svc.SyncAllOrders(ctx, shopify.Session{Shop: testShop}, model.SyncTypeInitial)
	require.Error(t, err)

	var upErr *UpstreamFetchError
	require.True(t, errors.As(err, &upErr), "应返回 UpstreamFetchError")
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 1, n, "已写入的订单保留")

	var orders int64
	db.Model(&model.Order{}).Count(&orders)
	assert.Equal(t, int64(1), orders)

	logs, _, _ := svc.ListLogs(ctx, repository.SyncLogFilter{ShopDomain: testShop, Status: model.SyncStatusError})
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].ErrorMessage, "fetch orders")
}

func TestSyncWebhookOrder_UnknownTenant(t *testing.T) {
	db, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)

	err := svc.SyncWebhookOrder(context.Background(), "ghost.myshopify.com", order(1, "#1", item(10, "Acme", 1)))
	assert.ErrorIs(t, err, ErrTenantNotFound)

	var orders int64
	db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders, "未知租户的订单不应入库")
}

func TestSyncWebhookOrder_WritesLog(t *testing.T) {
	db, uow := setupTestDB(t)
	seedOwner(t, db, testShop)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	require.NoError(t, svc.SyncWebhookOrder(ctx, testShop, order(5, "#5", item(10, "Acme", 1))))

	logs, _, err := svc.ListLogs(ctx, repository.SyncLogFilter{ShopDomain: testShop, SyncType: model.SyncTypeWebhook})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].SyncedCount)
}

func TestTenantSession(t *testing.T) {
	db, uow := setupTestDB(t)
	owner := seedOwner(t, db, testShop)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	sess, got, err := svc.TenantSession(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)
	assert.Equal(t, "tok-"+testShop, sess.AccessToken)

	// 卸载后令牌被清空视同租户不存在
	require.NoError(t, uow.Users.UpdateFields(ctx, owner.ID, map[string]interface{}{"access_token": ""}))
	_, _, err = svc.TenantSession(ctx, testShop)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestFetchVendorNames_DedupAcrossPages(t *testing.T) {
	_, uow := setupTestDB(t)
	api := &fakeAPI{vendorPages: []*shopify.VendorPage{
		{Vendors: []string{"Acme", "Beta"}, HasNextPage: true, EndCursor: "v1"},
		{Vendors: []string{"Beta", "Gamma"}},
	}}
	svc := NewSyncService(uow, api, 10, nil)

	names, err := svc.FetchVendorNames(context.Background(), shopify.Session{Shop: testShop})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Beta", "Gamma"}, names)
}

func TestRegisterVendors_Unique(t *testing.T) {
	_, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	ctx := context.Background()

	n, err := svc.RegisterVendors(ctx, uow, testShop, []string{"Acme", "Beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.RegisterVendors(ctx, uow, testShop, []string{"Acme", "Gamma"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, _ := uow.Vendors.CountByShop(ctx, testShop)
	assert.Equal(t, int64(3), count)
}

func TestSyncAllOrders_PersistFailureRollsBackOnlyThatOrder(t *testing.T) {
	db, uow := setupTestDB(t)
	api := &fakeAPI{orderPages: []*shopify.OrderPage{
		{Orders: []shopify.Order{
			order(1, "#1", item(10, "Acme", 1)),
			order(2, "#2", item(11, "Beta", 2)),
			order(3, "#3", item(10, "Acme", 3)),
		}},
	}}
	svc := NewSyncService(uow, api, 10, nil)
	svc.tx = &flakyTransactor{inner: uow, failOn: 2}
	ctx := context.Background()

	n, err := svc.SyncAllOrders(ctx, shopify.Session{Shop: testShop, AccessToken: "tok"}, model.SyncTypeManual)
	require.NoError(t, err, "单个订单失败不终止批次")
	assert.Equal(t, 2, n)

	var orders []model.Order
	db.Order("shopify_order_id").Find(&orders)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ShopifyOrderID)
	assert.Equal(t, int64(3), orders[1].ShopifyOrderID)

	// 失败订单的供应商、商品与明细一并回滚
	var beta, product11, items int64
	db.Model(&model.Vendor{}).Where("name = ?", "Beta").Count(&beta)
	db.Model(&model.Product{}).Where("shopify_product_id = ?", 11).Count(&product11)
	db.Model(&model.OrderLineItem{}).Count(&items)
	assert.Zero(t, beta)
	assert.Zero(t, product11)
	assert.Equal(t, int64(2), items)

	logs, _, err := svc.ListLogs(ctx, repository.SyncLogFilter{ShopDomain: testShop})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.SyncStatusSuccess, logs[0].Status)
	assert.Equal(t, 2, logs[0].SyncedCount)
	assert.Contains(t, logs[0].ErrorMessage, "1 个订单写入失败")
}

func TestSyncOrder_TransactionFailureIsPersistenceError(t *testing.T) {
	db, uow := setupTestDB(t)
	svc := NewSyncService(uow, &fakeAPI{}, 10, nil)
	svc.tx = &flakyTransactor{inner: uow, failOn: 1}

	err := svc.SyncOrder(context.Background(), testShop, order(1, "#1", item(10, "Acme", 1)))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errTxAborted)

	var orders int64
	db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders)
}
