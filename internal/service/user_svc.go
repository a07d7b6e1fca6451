package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ==================== UserService 用户服务 ====================

// UserService 用户服务
type UserService struct {
	uow *repository.UnitOfWork
}

// NewUserService 创建用户服务
func NewUserService(uow *repository.UnitOfWork) *UserService {
	return &UserService{uow: uow}
}

// ==================== 个人资料 ====================

// GetUser 获取用户
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.uow.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistErr("查询用户", err)
	}
	return user, nil
}

// GetProfile 获取个人资料
func (s *UserService) GetProfile(ctx context.Context, id int64) (*dto.ProfileResp, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProfile(user)
	return &resp, nil
}

// UpdateProfile 更新名称与通知设置
func (s *UserService) UpdateProfile(ctx context.Context, id int64, req *dto.ProfileUpdateReq) (*dto.ProfileResp, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}

	if req.NotifyMode != nil || req.NotifyValue != nil {
		if !user.IsStoreOwner() {
			return nil, ErrForbidden
		}

		mode := user.Mode()
		if req.NotifyMode != nil {
			mode = strings.TrimSpace(*req.NotifyMode)
		}
		value := user.ModeValue()
		if req.NotifyValue != nil {
			value = strings.TrimSpace(*req.NotifyValue)
		}

		if mode == "" {
			// 关闭定时通知
			fields["notify_mode"] = nil
			fields["notify_value"] = nil
		} else {
			if err := ValidateNotifySetting(mode, value); err != nil {
				return nil, err
			}
			fields["notify_mode"] = mode
			fields["notify_value"] = value
			// 切换模式后重新计时
			if mode != user.Mode() {
				fields["last_notified_at"] = nil
			}
		}
	}

	if len(fields) > 0 {
		if err := s.uow.Users.UpdateFields(ctx, id, fields); err != nil {
			return nil, persistErr("更新个人资料", err)
		}
	}
	return s.GetProfile(ctx, id)
}

// ==================== 实时通道辅助 ====================

// Touch 刷新最后活跃时间
func (s *UserService) Touch(ctx context.Context, id int64) error {
	return persistErr("更新活跃时间", s.uow.Users.TouchLastActive(ctx, id, time.Now()))
}

// Counterparts 对端联系人 ID（店主 <-> 其供应商）
func (s *UserService) Counterparts(ctx context.Context, user *model.User) ([]int64, error) {
	users, err := s.uow.Users.ListCounterparts(ctx, user)
	if err != nil {
		return nil, persistErr("查询联系人", err)
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// ==================== 供应商账号 ====================

// ProvisionVendorAccount 店主为供应商开通登录账号
// 供应商目录与用户目录通过 email 关联，供应商没有邮箱时以请求中的邮箱补齐
func (s *UserService) ProvisionVendorAccount(ctx context.Context, shopDomain string, vendorID int64, req *dto.VendorAccountReq) (*dto.ProfileResp, error) {
	vendor, err := s.uow.Vendors.GetByID(ctx, shopDomain, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistErr("查询供应商", err)
	}

	// 关联按 email 精确匹配，已登记的邮箱原样使用
	email := strings.TrimSpace(vendor.Email)
	reqEmail := strings.TrimSpace(req.Email)
	switch {
	case email == "" && reqEmail == "":
		return nil, invalidArg("供应商没有邮箱，请提供 email")
	case email == "":
		email = strings.ToLower(reqEmail)
	case reqEmail != "" && !strings.EqualFold(email, reqEmail):
		return nil, invalidArg("email 与供应商登记的邮箱不一致")
	}

	if _, err := s.uow.Users.GetByEmail(ctx, email); err == nil {
		return nil, invalidArg("邮箱 %s 已注册", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistErr("查询用户", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = vendor.Name
	}
	user := &model.User{
		Role:         model.RoleVendor,
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}

	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return persistErr("创建供应商账号", err)
		}
		if vendor.Email == "" {
			if err := tx.Vendors.UpdateFields(ctx, vendor.ID, map[string]interface{}{"email": email}); err != nil {
				return persistErr("回填供应商邮箱", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToProfile(user)
	return &resp, nil
}

// ToProfile 模型转个人资料
func ToProfile(u *model.User) dto.ProfileResp {
	return dto.ProfileResp{
		ID:                   u.ID,
		Role:                 u.Role,
		Email:                u.Email,
		Name:                 u.Name,
		ShopDomain:           u.ShopDomain,
		NotifyMode:           u.NotifyMode,
		NotifyValue:          u.NotifyValue,
		LastNotifiedAt:       u.LastNotifiedAt,
		InitialSyncCompleted: u.InitialSyncCompleted,
		LastActive:           u.LastActive,
	}
}
