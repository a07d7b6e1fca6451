package service

import (
	"context"
	"testing"
	"time"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateProfileNotifySettings(t *testing.T) {
	db, uow := setupTestDB(t)
	owner := seedOwner(t, db, testShop)
	svc := NewUserService(uow)
	ctx := context.Background()

	resp, err := svc.UpdateProfile(ctx, owner.ID, &dto.ProfileUpdateReq{
		NotifyMode:  strPtr(model.NotifyModeSpecificTime),
		NotifyValue: strPtr(" 8 AM "),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.NotifyMode)
	assert.Equal(t, model.NotifyModeSpecificTime, *resp.NotifyMode)
	assert.Equal(t, "8 AM", *resp.NotifyValue)

	_, err = svc.UpdateProfile(ctx, owner.ID, &dto.ProfileUpdateReq{NotifyValue: strPtr("25 PM")})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 切换模式时重置计时
	require.NoError(t, uow.Users.UpdateLastNotifiedAt(ctx, owner.ID, time.Now()))
	resp, err = svc.UpdateProfile(ctx, owner.ID, &dto.ProfileUpdateReq{
		NotifyMode:  strPtr(model.NotifyModeEveryXHours),
		NotifyValue: strPtr("4"),
	})
	require.NoError(t, err)
	assert.Nil(t, resp.LastNotifiedAt)

	// 空模式关闭通知
	resp, err = svc.UpdateProfile(ctx, owner.ID, &dto.ProfileUpdateReq{NotifyMode: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, resp.NotifyMode)
	assert.Nil(t, resp.NotifyValue)
}

func TestUserService_VendorCannotSetNotify(t *testing.T) {
	db, uow := setupTestDB(t)
	_, vendor := seedVendorAccount(t, db, testShop, "Acme", "acme@example.com", "secret")
	svc := NewUserService(uow)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, vendor.ID, &dto.ProfileUpdateReq{NotifyMode: strPtr(model.NotifyModeEveryXHours)})
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := svc.UpdateProfile(ctx, vendor.ID, &dto.ProfileUpdateReq{Name: strPtr("  Acme Ltd ")})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", resp.Name)

	_, err = svc.GetProfile(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_ProvisionVendorAccount(t *testing.T) {
	db, uow := setupTestDB(t)
	owner := seedOwner(t, db, testShop)
	svc := NewUserService(uow)
	ctx := context.Background()

	vendor := &model.Vendor{Name: "Acme", ShopDomain: testShop}
	require.NoError(t, db.Create(vendor).Error)

	_, err := svc.ProvisionVendorAccount(ctx, testShop, vendor.ID, &dto.VendorAccountReq{Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidArgument, "供应商没有邮箱时必须提供")

	resp, err := svc.ProvisionVendorAccount(ctx, testShop, vendor.ID, &dto.VendorAccountReq{
		Email:    "Sales@Acme.io",
		Password: "password1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleVendor, resp.Role)
	assert.Equal(t, "sales@acme.io", resp.Email)
	assert.Equal(t, "Acme", resp.Name, "未提供名称时使用供应商名称")

	refreshed, err := uow.Vendors.GetByID(ctx, testShop, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales@acme.io", refreshed.Email, "供应商邮箱被回填")

	// 账号与店主互为联系人
	ids, err := svc.Counterparts(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []int64{resp.ID}, ids)

	_, err = svc.ProvisionVendorAccount(ctx, testShop, vendor.ID, &dto.VendorAccountReq{Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidArgument, "邮箱已注册")

	_, err = svc.ProvisionVendorAccount(ctx, "other.myshopify.com", vendor.ID, &dto.VendorAccountReq{Email: "x@y.io", Password: "password1"})
	assert.ErrorIs(t, err, ErrNotFound, "不能为其它店铺的供应商开通账号")
}

func TestUserService_ProvisionRejectsMismatchedEmail(t *testing.T) {
	db, uow := setupTestDB(t)
	svc := NewUserService(uow)

	vendor := &model.Vendor{Name: "Acme", ShopDomain: testShop, Email: "acme@example.com"}
	require.NoError(t, db.Create(vendor).Error)

	_, err := svc.ProvisionVendorAccount(context.Background(), testShop, vendor.ID, &dto.VendorAccountReq{
		Email:    "other@example.com",
		Password: "password1",
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
