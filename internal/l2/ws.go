package l2

import "context"

// TxWatcher waits for commit notifications of submitted transactions.
type TxWatcher interface {
	// WaitTx blocks until the network reports the transaction as committed
	// or ctx is done.
	WaitTx(ctx context.Context, hash string) (*TxStatus, error)

	// Close closes the underlying connection.
	Close() error
}
