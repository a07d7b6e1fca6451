package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopify_vendor_hub/internal/api/dto"
	"shopify_vendor_hub/internal/middleware"
	"shopify_vendor_hub/internal/model"
	"shopify_vendor_hub/internal/repository"
	"shopify_vendor_hub/pkg/logger"
	"shopify_vendor_hub/pkg/shopify"
	"shopify_vendor_hub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CallbackPath OAuth 回调路径，需与 Shopify 应用配置一致
const CallbackPath = "/api/auth/callback"

// stateTTL 授权 state 有效期
const stateTTL = 10 * time.Minute

// BackgroundRunner 脱离请求生命周期执行任务（带重试）
type BackgroundRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// AuthConfig Shopify 应用凭证
type AuthConfig struct {
	APIKey    string
	APISecret string
	Scopes    string
	AppURL    string
}

// AuthService 安装授权 / 登录 / 租户注销
type AuthService struct {
	uow    *repository.UnitOfWork
	tx     repository.Transactor
	api    shopify.API
	sync   *SyncService
	runner BackgroundRunner
	states *utils.TTLCache
	cfg    AuthConfig
}

// NewAuthService 工厂方法
func NewAuthService(uow *repository.UnitOfWork, api shopify.API, syncSvc *SyncService, runner BackgroundRunner, cfg AuthConfig) *AuthService {
	return &AuthService{
		uow:    uow,
		tx:     uow,
		api:    api,
		sync:   syncSvc,
		runner: runner,
		states: utils.NewTTLCache(stateTTL),
		cfg:    cfg,
	}
}

// ==================== 安装授权 ====================

// InstallURL 生成 Shopify 授权链接，state 写入缓存等待回调校验
func (s *AuthService) InstallURL(shopDomain string) (string, error) {
	shopDomain = strings.ToLower(strings.TrimSpace(shopDomain))
	if !shopify.ValidShopDomain(shopDomain) {
		return "", invalidArg("无效的店铺域名: %s", shopDomain)
	}
	state := uuid.NewString()
	s.states.Set(state, shopDomain)

	redirect := strings.TrimRight(s.cfg.AppURL, "/") + CallbackPath
	return shopify.AuthorizeURL(shopDomain, s.cfg.APIKey, s.cfg.Scopes, redirect, state), nil
}

// CompleteInstall 处理回调：校验 state 与 HMAC -> 换 Token -> 引导初始化 -> 签发会话
func (s *AuthService) CompleteInstall(ctx context.Context, query url.Values) (*dto.LoginResp, error) {
	shopDomain := query.Get("shop")
	if !shopify.ValidShopDomain(shopDomain) {
		return nil, &AuthError{Reason: "无效的店铺域名"}
	}
	cached, ok := s.states.Take(query.Get("state"))
	if !ok || cached != shopDomain {
		return nil, &AuthError{Reason: "授权超时或 state 无效，请重新发起"}
	}
	if !shopify.VerifyQueryHMAC(query, s.cfg.APISecret) {
		return nil, &AuthError{Reason: "回调签名校验失败"}
	}

	token, err := s.api.ExchangeToken(ctx, shopDomain, query.Get("code"))
	if err != nil {
		return nil, &UpstreamFetchError{Shop: shopDomain, Op: "exchange token", Err: err}
	}
	sess := shopify.Session{Shop: shopDomain, AccessToken: token.AccessToken}

	info, err := s.api.FetchShop(ctx, sess)
	if err != nil {
		return nil, &UpstreamFetchError{Shop: shopDomain, Op: "fetch shop", Err: err}
	}

	owner, started, err := s.Bootstrap(ctx, sess, info, token.Scope)
	if err != nil {
		return nil, err
	}
	resp, err := s.issue(owner)
	if err != nil {
		return nil, err
	}
	resp.InitialSyncStarted = started
	return resp, nil
}

// Bootstrap 首次安装：预取供应商 -> 单事务写入店主与供应商目录 -> 后台初始同步
// 已安装的店铺只刷新凭证；初始同步未完成时重新启动
func (s *AuthService) Bootstrap(ctx context.Context, sess shopify.Session, info *shopify.ShopInfo, scope string) (*model.User, bool, error) {
	log := logger.GetLogger().With(zap.String("shop", sess.Shop))

	owner, err := s.uow.Users.GetStoreOwner(ctx, sess.Shop)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, persistErr("查询店主", err)
	}

	if owner != nil {
		err = s.uow.Users.UpdateFields(ctx, owner.ID, map[string]interface{}{
			"access_token": sess.AccessToken,
			"scope":        scope,
		})
		if err != nil {
			return nil, false, persistErr("刷新店铺凭证", err)
		}
		owner.AccessToken, owner.Scope = sess.AccessToken, scope
		if owner.InitialSyncCompleted {
			return owner, false, nil
		}
		log.Info("[AuthService] 初始同步未完成，重新启动")
		s.startInitialSync(owner.ID, sess)
		return owner, true, nil
	}

	// 上游请求放在事务外
	names, err := s.sync.FetchVendorNames(ctx, sess)
	if err != nil {
		return nil, false, err
	}

	shopDomain := sess.Shop
	email, err := s.availableOwnerEmail(ctx, info, shopDomain)
	if err != nil {
		return nil, false, err
	}
	owner = &model.User{
		Role:        model.RoleStoreOwner,
		Email:       email,
		Name:        ownerName(info, shopDomain),
		ShopDomain:  &shopDomain,
		AccessToken: sess.AccessToken,
		Scope:       scope,
	}
	var created int
	err = s.tx.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		if err := tx.Users.Create(ctx, owner); err != nil {
			return persistErr("创建店主", err)
		}
		n, err := s.sync.RegisterVendors(ctx, tx, shopDomain, names)
		created = n
		return err
	})
	if err != nil {
		return nil, false, err
	}
	log.Info("[AuthService] 店铺初始化完成",
		zap.Int64("owner_id", owner.ID), zap.Int("vendors", created))

	s.startInitialSync(owner.ID, sess)
	return owner, true, nil
}

// startInitialSync 后台全量同步，成功后标记 initial_sync_completed
func (s *AuthService) startInitialSync(ownerID int64, sess shopify.Session) {
	if s.runner == nil {
		return
	}
	s.runner.Go("initial-sync:"+sess.Shop, func(ctx context.Context) error {
		n, err := s.sync.SyncAllOrders(ctx, sess, model.SyncTypeInitial)
		if err != nil {
			return err
		}
		if err := s.uow.Users.UpdateFields(ctx, ownerID, map[string]interface{}{
			"initial_sync_completed": true,
		}); err != nil {
			return persistErr("标记初始同步完成", err)
		}
		logger.GetLogger().Info("[AuthService] 初始同步完成",
			zap.String("shop", sess.Shop), zap.Int("orders", n))
		return nil
	})
}

// ==================== 供应商登录 ====================

// VendorLogin 供应商邮箱密码登录
func (s *AuthService) VendorLogin(ctx context.Context, req *dto.VendorLoginReq) (*dto.LoginResp, error) {
	user, err := s.uow.Users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &AuthError{Reason: "邮箱或密码错误"}
		}
		return nil, persistErr("查询用户", err)
	}
	if !user.IsVendor() || user.PasswordHash == "" {
		return nil, &AuthError{Reason: "邮箱或密码错误"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &AuthError{Reason: "邮箱或密码错误"}
	}

	now := time.Now()
	if err := s.uow.Users.TouchLastActive(ctx, user.ID, now); err != nil {
		logger.GetLogger().Warn("[AuthService] 更新活跃时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastActive = &now
	return s.issue(user)
}

// ==================== 租户注销 ====================

// RedactTenant 卸载 / shop/redact：物理删除该店铺全部数据
func (s *AuthService) RedactTenant(ctx context.Context, shopDomain string) error {
	if err := s.uow.PurgeTenant(ctx, shopDomain); err != nil {
		return persistErr("注销租户", err)
	}
	logger.GetLogger().Info("[AuthService] 租户数据已删除", zap.String("shop", shopDomain))
	return nil
}

// ==================== 辅助 ====================

func (s *AuthService) issue(user *model.User) (*dto.LoginResp, error) {
	token, expiresAt, err := middleware.GenerateAccessToken(user.ID, user.Email, user.Role, user.Domain())
	if err != nil {
		return nil, fmt.Errorf("签发令牌失败: %w", err)
	}
	return &dto.LoginResp{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        ToProfile(user),
	}, nil
}

// availableOwnerEmail 店铺邮箱已被其它账号占用时（同一商家的多个店铺）退回占位邮箱
func (s *AuthService) availableOwnerEmail(ctx context.Context, info *shopify.ShopInfo, shopDomain string) (string, error) {
	email := ownerEmail(info, shopDomain)
	placeholder := "owner@" + shopDomain
	if email == placeholder {
		return email, nil
	}
	_, err := s.uow.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return email, nil
	case err != nil:
		return "", persistErr("查询店主邮箱", err)
	}
	logger.GetLogger().Warn("[AuthService] 店铺邮箱已被占用，使用占位邮箱",
		zap.String("shop", shopDomain), zap.String("email", email))
	return placeholder, nil
}

func ownerEmail(info *shopify.ShopInfo, shopDomain string) string {
	if info != nil && info.Email != "" {
		return info.Email
	}
	return "owner@" + shopDomain
}

func ownerName(info *shopify.ShopInfo, shopDomain string) string {
	if info != nil && info.Name != "" {
		return info.Name
	}
	return shopDomain
}
