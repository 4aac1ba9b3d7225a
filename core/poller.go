package core

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type PollResult struct {
	Node     Node
	CallID   string
	Attempts int
	Elapsed  time.Duration
}

// Poll invokes req until accept reports true, the attempt budget runs out, or
// the deadline passes. Invoke failures end the poll immediately.
func (c *Client) Poll(ctx context.Context, req ActionRequest, accept AcceptFunc, overrides PollConfig) (result PollResult, err error) {
	if c == nil {
		return PollResult{}, fmt.Errorf("core: client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req = normalizeActionRequest(req)
	callID := c.newCallID()
	startedAt := c.now()
	fields := map[string]any{
		"call_id":      callID,
		"service_name": req.ServiceName,
		"action":       req.Action,
		"endpoint":     req.Endpoint,
	}
	var state *backoffState
	defer func() {
		if state != nil {
			fields["attempts"] = state.attempts
		}
		c.observeOperation(ctx, startedAt, "poll", err, fields)
	}()

	if accept == nil {
		err = c.mapError(newSOAPError("core: accept predicate is required", goerrors.CategoryBadInput, ErrorBadInput,
			map[string]any{"stage": StageValidate, "call_id": callID, "action": req.Action}))
		return PollResult{}, err
	}
	cfg, mergeErr := MergePollConfig(c.PollDefaults(), overrides)
	if mergeErr != nil {
		err = c.mapError(mergeErr)
		return PollResult{}, err
	}
	deadline := cfg.deadline(startedAt)
	state = newBackoffState(cfg, startedAt)
	fields["max_attempts"] = cfg.MaxAttempts
	fields["deadline"] = deadline

	for {
		call := callAttempt{id: callID, attempt: state.attempts + 1}
		attemptStarted := c.now()
		node, invokeErr := c.invoke(ctx, req, call)
		if invokeErr != nil {
			state.attempts = call.attempt
			err = invokeErr
			return PollResult{}, err
		}

		accepted, acceptErr := runAccept(accept, node)
		if accepted {
			state.attempts = call.attempt
			c.journal(ctx, req, call, StageAccept, CallStatusAccepted, nil, attemptStarted)
			return PollResult{
				Node:     node,
				CallID:   callID,
				Attempts: call.attempt,
				Elapsed:  c.now().Sub(startedAt),
			}, nil
		}
		c.journal(ctx, req, call, StageAccept, CallStatusRejected, acceptErr, attemptStarted)

		state.attempts++
		rejectedFields := map[string]any{
			"call_id": callID,
			"action":  req.Action,
			"attempt": state.attempts,
			"wait_ms": state.wait.Milliseconds(),
		}
		if acceptErr != nil {
			rejectedFields["error"] = acceptErr.Error()
		}
		c.logDebug(ctx, "poll attempt rejected", rejectedFields)

		metadata := map[string]any{
			"stage":        StagePoll,
			"call_id":      callID,
			"service_name": req.ServiceName,
			"action":       req.Action,
			"endpoint":     req.Endpoint,
			"attempts":     state.attempts,
			"max_attempts": cfg.MaxAttempts,
			"deadline":     deadline,
		}
		if cfg.MaxAttempts >= 0 && state.attempts >= cfg.MaxAttempts {
			err = c.mapError(newSOAPError(
				fmt.Sprintf("core: poll for %q exhausted after %d attempts", req.Action, state.attempts),
				goerrors.CategoryOperation, ErrorPollExhausted, metadata))
			return PollResult{}, err
		}
		if c.now().After(deadline) {
			err = c.mapError(newSOAPError(
				fmt.Sprintf("core: poll for %q timed out after %d attempts", req.Action, state.attempts),
				goerrors.CategoryOperation, ErrorPollTimedOut, metadata))
			return PollResult{}, err
		}
		if waitErr := c.sleep(ctx, state.wait); waitErr != nil {
			err = c.mapError(wrapSOAPError(waitErr, goerrors.CategoryOperation, ErrorPollCanceled,
				fmt.Sprintf("core: poll for %q canceled", req.Action), metadata))
			return PollResult{}, err
		}
		state.grow(cfg)
	}
}

// PollUntil is Poll returning only the accepted node.
func (c *Client) PollUntil(ctx context.Context, req ActionRequest, accept AcceptFunc, overrides PollConfig) (Node, error) {
	result, err := c.Poll(ctx, req, accept, overrides)
	if err != nil {
		return nil, err
	}
	return result.Node, nil
}

func runAccept(accept AcceptFunc, node Node) (accepted bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			accepted = false
			err = fmt.Errorf("core: accept predicate panicked: %v", recovered)
		}
	}()
	ok, acceptErr := accept(node)
	if acceptErr != nil {
		return false, acceptErr
	}
	return ok, nil
}

// AcceptText accepts a node whose text at path equals one of values.
func AcceptText(path []string, values ...string) AcceptFunc {
	segments := append([]string(nil), path...)
	wanted := append([]string(nil), values...)
	return func(node Node) (bool, error) {
		got := node.TextAt(segments...)
		for _, value := range wanted {
			if got == value {
				return true, nil
			}
		}
		return false, nil
	}
}

// AcceptPresent accepts a node that has a child at path.
func AcceptPresent(path ...string) AcceptFunc {
	segments := append([]string(nil), path...)
	return func(node Node) (bool, error) {
		_, ok := node.Lookup(segments...)
		return ok, nil
	}
}
