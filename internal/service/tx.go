package service

import "context"

// TxManager runs a function inside a storage transaction. Every repository
// call made with the context it passes to fn joins the same transaction; if
// fn returns an error all writes roll back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
