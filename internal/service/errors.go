package service

import (
	"errors"
	"fmt"
)

// ==================== 错误分类 ====================

var (
	// ErrTenantNotFound 没有匹配的店主记录
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrNotFound 资源不存在或不属于当前租户
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden 角色无权执行该操作
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument 参数校验失败
	ErrInvalidArgument = errors.New("invalid argument")
)

// UpstreamFetchError 与 Shopify 通信失败，终止当前同步批次
type UpstreamFetchError struct {
	Shop string
	Op   string
	Err  error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("上游请求失败 [%s] %s: %v", e.Shop, e.Op, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// PersistenceError 数据库失败，仅回滚所在事务
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化失败 %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TenantNotFoundError 店铺没有对应的店主
type TenantNotFoundError struct {
	ShopDomain string
}

func (e *TenantNotFoundError) Error() string {
	return fmt.Sprintf("店铺 %s 未找到店主", e.ShopDomain)
}

func (e *TenantNotFoundError) Is(target error) bool { return target == ErrTenantNotFound }

// AuthError 凭证无效或过期
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "认证失败: " + e.Reason
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func invalidArg(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
