package pgtable

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type (
	// Tx is a transaction open on an OwnedConn. It ends with exactly one
	// successful Commit or Rollback; dropping it unfinished rolls it back
	// when the connection is released.
	Tx struct {
		owner *OwnedConn
		done  bool
	}

	TransactionBlock func(context.Context, Conn) error
)

const rollbackTimeout = 5 * time.Second

// Begin starts a transaction on the connection. Only one transaction can be
// open on a connection at a time.
func (c *OwnedConn) Begin(ctx context.Context) (*Tx, error) {
	if err := c.usable(); err != nil {
		return nil, newError("begin", err, nil)
	}
	if c.raw.inTransaction() {
		return nil, newError("begin", ErrTxInProgress, nil)
	}
	c.db.log("BEGIN", nil)
	if err := c.raw.begin(ctx); err != nil {
		return nil, classify("begin", err)
	}
	return &Tx{owner: c}, nil
}

// Conn returns a view of the connection whose statements take part in the
// transaction.
func (t *Tx) Conn() Conn {
	if t.done {
		return Conn{}
	}
	return Conn{owner: t.owner}
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return newError("commit", ErrTxDone, nil)
	}
	if err := t.owner.usable(); err != nil {
		return newError("commit", err, nil)
	}
	t.done = true
	t.owner.db.log("COMMIT", nil)
	return classify("commit", t.owner.raw.commit(ctx))
}

// Rollback aborts the transaction. It is a no-op if the transaction has
// already been committed or rolled back, so it can be deferred. Rollback
// runs even if ctx is cancelled; if it fails the connection is closed
// instead of going back to the pool.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done || t.owner.usable() != nil {
		return nil
	}
	t.done = true
	t.owner.db.log("ROLLBACK", nil)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := t.owner.raw.rollback(ctx); err != nil {
		t.owner.raw.discard(ctx)
		return classify("rollback", err)
	}
	return nil
}

// Transaction runs block in a transaction on the connection. The
// transaction is committed if block returns nil and rolled back if it
// returns an error or panics; a panic is returned as an error.
func (c *OwnedConn) Transaction(ctx context.Context, block TransactionBlock) (err error) {
	var tx *Tx
	tx, err = c.Begin(ctx)
	if err != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback(ctx)
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = errors.New(fmt.Sprint(r))
			}
		} else if err != nil {
			tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	err = block(ctx, tx.Conn())
	return
}

// Transaction acquires a connection and runs block in a transaction on it,
// see OwnedConn.Transaction.
func (d *Database) Transaction(ctx context.Context, block TransactionBlock) error {
	conn, err := d.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Transaction(ctx, block)
}

// MustTransaction starts a transaction and panics if transaction fails.
func (d *Database) MustTransaction(ctx context.Context, block TransactionBlock) {
	if err := d.Transaction(ctx, block); err != nil {
		panic(err)
	}
}
