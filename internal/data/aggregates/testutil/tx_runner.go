package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/courseflow-backend/internal/data/aggregates"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// InjectedTxRunner runs aggregate bodies with failure injection.
// With DB set, the body runs in a real transaction and FailCommit rolls it back
// after the body succeeded, which lets tests assert nothing was partially applied.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB         *gorm.DB
	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	db := r.DB
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failCommit
	}

	var err error
	if db == nil {
		err = body(dbctx.Context{Ctx: ctx})
	} else {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	}

	r.mu.Lock()
	if err != nil {
		r.RollbackCalls++
	} else {
		r.CommitCalls++
	}
	r.mu.Unlock()
	return err
}
