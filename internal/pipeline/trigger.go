package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/script-agent/internal/types"
)

// failTimeout bounds the write that marks a run failed.
const failTimeout = 10 * time.Second

// Trigger runs a request behind the failure boundary used by the API and
// CLI. A *ValidationError is returned as is. Any other failure, including a
// panic, marks the created run failed with a generic message and returns
// ErrInternal.
func (c *Coordinator) Trigger(ctx context.Context, req Request) (summary *types.RunSummary, err error) {
	var runID uuid.UUID

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("extraction run panicked",
				zap.Any("panic", r),
				zap.String("run_id", runID.String()),
				zap.Stack("stack"))
			summary = nil
			err = c.fail(runID, fmt.Errorf("panic: %v", r))
		}
	}()

	summary, err = c.run(ctx, req, &runID)
	if err == nil {
		return summary, nil
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return nil, validationErr
	}
	return nil, c.fail(runID, err)
}

// fail logs cause, marks the run failed when one was created and returns
// ErrInternal. The update uses its own context so a cancelled request still
// leaves the run terminal.
func (c *Coordinator) fail(runID uuid.UUID, cause error) error {
	c.logger.Error("extraction run failed", zap.String("run_id", runID.String()), zap.Error(cause))
	if runID == uuid.Nil {
		return ErrInternal
	}

	ctx, cancel := context.WithTimeout(context.Background(), failTimeout)
	defer cancel()
	if err := c.store.FailRun(ctx, runID, ErrInternal.Error()); err != nil {
		c.logger.Error("failed to mark run failed", zap.String("run_id", runID.String()), zap.Error(err))
	}
	return ErrInternal
}
