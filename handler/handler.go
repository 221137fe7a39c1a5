package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensator"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/middleware"
	"github.com/flowforge/flowforge/step"
)

// StepFunc implements one workflow step's forward business logic. It
// returns the output bag merged into the workflow context on success,
// or a non-nil error to fail the step.
type StepFunc func(ctx context.Context, workflowID, stepName string, input flowforge.Bag) (flowforge.Bag, error)

// CompensationFunc implements one workflow step's rollback logic. It
// receives the workflow context and the original step's recorded
// output, and returns a non-nil error if the rollback itself failed.
type CompensationFunc func(ctx context.Context, workflowID, originalStep, compensationStep string, wfContext, originalOutput flowforge.Bag) error

// StepError marks a StepFunc or CompensationFunc failure as a
// business-level failure carrying a stable code. A plain error is
// reported as a step-failed/compensation-completed event with an empty
// code.
type StepError struct {
	Code    string
	Message string
}

func (e *StepError) Error() string { return e.Message }

// Fail builds a StepError carrying a stable code, for handlers that
// want callers (and the audit trail) to distinguish failure reasons
// programmatically rather than by message text.
func Fail(code, message string) error {
	return &StepError{Code: code, Message: message}
}

func toStepError(err error) step.Error {
	var se *StepError
	if errors.As(err, &se) {
		return step.Error{Code: se.Code, Message: se.Message}
	}
	return step.Error{Message: err.Error()}
}

// defaultChain builds the base middleware chain (recover, then
// logging) that every handler subscription wraps before any
// caller-supplied middleware.
func defaultChain(logger *slog.Logger, extra []middleware.Middleware) middleware.Middleware {
	mws := make([]middleware.Middleware, 0, len(extra)+2)
	mws = append(mws, middleware.Recover(logger), middleware.Logging(logger))
	mws = append(mws, extra...)
	return middleware.Chain(mws...)
}

// SubscribeStep wires fn to topic on bus. Each invocation emits exactly
// one terminal event: step-completed on success, step-failed if fn
// returns an error or panics.
func SubscribeStep(bus event.Bus, topic string, fn StepFunc, logger *slog.Logger, mw ...middleware.Middleware) error {
	if logger == nil {
		logger = slog.Default()
	}
	chain := defaultChain(logger, mw)

	return bus.Subscribe(topic, func(ctx context.Context, evt event.Event) error {
		p, ok := evt.Data.(engine.ExecuteStepPayload)
		if !ok {
			logger.Error("handler: unexpected payload on step topic", slog.String("topic", topic))
			return nil
		}

		var businessErr error
		chainErr := chain(ctx, evt, func(ctx context.Context) error {
			output, err := fn(ctx, p.WorkflowID, p.StepName, p.Context)
			if err != nil {
				businessErr = err
				return nil
			}
			return bus.Emit(ctx, event.TopicStepCompleted, engine.StepCompletedPayload{
				WorkflowID: p.WorkflowID,
				StepName:   p.StepName,
				Output:     output,
			})
		})

		failErr := businessErr
		if chainErr != nil {
			failErr = chainErr
		}
		if failErr == nil {
			return nil
		}
		return bus.Emit(ctx, event.TopicStepFailed, engine.StepFailedPayload{
			WorkflowID: p.WorkflowID,
			StepName:   p.StepName,
			Error:      toStepError(failErr),
		})
	})
}

// SubscribeCompensation wires fn to the compensation dispatch topic for
// compensationName on bus. Each invocation emits exactly one
// compensation-completed event, reporting success or failure;
// the compensator's reverse path keeps moving either way.
func SubscribeCompensation(bus event.Bus, compensationName string, fn CompensationFunc, logger *slog.Logger, mw ...middleware.Middleware) error {
	if logger == nil {
		logger = slog.Default()
	}
	chain := defaultChain(logger, mw)
	topic := event.CompensationTopic(compensationName)

	return bus.Subscribe(topic, func(ctx context.Context, evt event.Event) error {
		p, ok := evt.Data.(compensator.CompensationDispatchPayload)
		if !ok {
			logger.Error("handler: unexpected payload on compensation topic", slog.String("topic", topic))
			return nil
		}

		var businessErr error
		chainErr := chain(ctx, evt, func(ctx context.Context) error {
			if err := fn(ctx, p.WorkflowID, p.OriginalStep, p.CompensationStep, p.Context, p.OriginalOutput); err != nil {
				businessErr = err
			}
			return nil
		})

		failErr := businessErr
		if chainErr != nil {
			failErr = chainErr
		}

		completed := compensator.CompensationCompletedPayload{
			WorkflowID: p.WorkflowID,
			StepName:   p.OriginalStep,
			Success:    failErr == nil,
		}
		if failErr != nil {
			completed.Error = toStepError(failErr).Message
		}
		return bus.Emit(ctx, event.TopicCompensationDone, completed)
	})
}
