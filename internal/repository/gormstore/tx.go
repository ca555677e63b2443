package gormstore

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager implements service.TxManager on top of gorm transactions. The
// open transaction travels in the context; every repository in this package
// resolves it before falling back to the root handle, so calls made inside
// WithinTx join the same transaction.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction bound to ctx, or the root handle.
func dbFrom(ctx context.Context, root *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return root.WithContext(ctx)
}
