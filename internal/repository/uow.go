package repository

import (
	"context"
	"errors"

	"shopify_vendor_hub/internal/model"

	"gorm.io/gorm"
)

// Transactor 显式事务边界，嵌套的 upsert 辅助函数接收 tx 内的 UnitOfWork
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *UnitOfWork) error) error
}

// UnitOfWork 工作单元：同一连接/事务下的全部仓库
type UnitOfWork struct {
	db       *gorm.DB
	Users    UserRepository
	Vendors  VendorRepository
	Products ProductRepository
	Orders   OrderRepository
	SyncLogs SyncLogRepository
	Messages MessageRepository
}

// NewUnitOfWork 创建工作单元
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		db:       db,
		Users:    NewUserRepository(db),
		Vendors:  NewVendorRepository(db),
		Products: NewProductRepository(db),
		Orders:   NewOrderRepository(db),
		SyncLogs: NewSyncLogRepository(db),
		Messages: NewMessageRepository(db),
	}
}

// Transaction 执行事务，fn 返回错误或 panic 时回滚
func (u *UnitOfWork) Transaction(ctx context.Context, fn func(tx *UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewUnitOfWork(tx))
	})
}

// PurgeTenant 租户注销：物理删除该店铺的全部数据
func (u *UnitOfWork) PurgeTenant(ctx context.Context, shopDomain string) error {
	return u.Transaction(ctx, func(tx *UnitOfWork) error {
		db := tx.db.WithContext(ctx)

		owner, err := tx.Users.GetStoreOwner(ctx, shopDomain)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if owner != nil {
			msgIDs := db.Model(&model.Message{}).Select("id").
				Where("sender_id = ? OR receiver_id = ?", owner.ID, owner.ID)
			if err := db.Where("message_id IN (?)", msgIDs).Delete(&model.MessageRecipient{}).Error; err != nil {
				return err
			}
			if err := db.Where("sender_id = ? OR receiver_id = ?", owner.ID, owner.ID).Delete(&model.Message{}).Error; err != nil {
				return err
			}
		}

		orderIDs := db.Model(&model.Order{}).Select("id").Where("shop_domain = ?", shopDomain)
		steps := []func() error{
			func() error {
				return db.Where("order_id IN (?)", orderIDs).Delete(&model.OrderLineItem{}).Error
			},
			func() error { return db.Where("shop_domain = ?", shopDomain).Delete(&model.Order{}).Error },
			func() error { return db.Where("shop_domain = ?", shopDomain).Delete(&model.Product{}).Error },
			func() error { return db.Where("shop_domain = ?", shopDomain).Delete(&model.Vendor{}).Error },
			func() error { return db.Where("shop_domain = ?", shopDomain).Delete(&model.SyncLog{}).Error },
			func() error { return db.Where("shop_domain = ?", shopDomain).Delete(&model.User{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}
