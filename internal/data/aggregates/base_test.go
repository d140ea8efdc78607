package aggregates

import (
	"context"
	"testing"
	"time"

	domainagg "github.com/yungbote/courseflow-backend/internal/domain/aggregates"
	"github.com/yungbote/courseflow-backend/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.success", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("unexpected operations: %+v", hooks.Operations)
	}
}

func TestExecuteWriteObservesDomainCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code domainagg.ErrorCode
	}{
		{"invariant", InvariantError("invariant broken"), domainagg.CodeInvariantViolation},
		{"not_enrolled", domainagg.NewError(domainagg.CodeNotEnrolled, "op", "no enrollment", nil), domainagg.CodeNotEnrolled},
		{"not_available", notAvailable("op"), domainagg.CodeNotAvailable},
		{"not_found", notFound("op", "section"), domainagg.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &spyHooks{}
			err := executeWrite(context.Background(), BaseDeps{
				Runner: spyTxRunner{},
				Hooks:  hooks,
			}, "aggregate.test."+tc.name, func(_ dbctx.Context) error { return tc.err })
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got=%v", tc.code, err)
			}
			if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(tc.code) {
				t.Fatalf("unexpected operations: %+v", hooks.Operations)
			}
			if gated := len(hooks.Gated) == 1; gated != (tc.code == domainagg.CodeNotAvailable) {
				t.Fatalf("gate denials: %+v", hooks.Gated)
			}
		})
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: spyTxRunner{},
			Hooks:  hooks,
		}, "aggregate.test.conflict", func(_ dbctx.Context) error {
			return ConflictError("payment changed")
		})
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "aggregate.test.conflict" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: spyTxRunner{},
			Hooks:  hooks,
		}, "aggregate.test.retry", func(_ dbctx.Context) error {
			return RetryableError("temporary lock timeout")
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "aggregate.test.retry" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
	})
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(ConflictError("x")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

func TestValidateInputReportsFields(t *testing.T) {
	deps := BaseDeps{}.withDefaults()
	err := validateInput(deps, "op", domainagg.CreateCourseInput{Title: "", Price: -5})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got=%v", err)
	}
	fields := domainagg.FieldsOf(err)
	if fields["title"] != "required" || fields["price"] != "gte" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if err := validateInput(deps, "op", domainagg.CreateCourseInput{Title: "Go"}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
	Gated      []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.Retries = append(h.Retries, name)
}

func (h *spyHooks) IncGateDenied(name string) {
	h.Gated = append(h.Gated, name)
}
