package contracts

import "context"

// Transactor runs fn inside a single database transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
