package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
)

// GatewayFactory builds the remote gateway for one batch from the caller's
// credentials.
type GatewayFactory func(creds coreagent.Credentials) Gateway

type ActionResult struct {
	Index          int      `json:"index"`
	Type           string   `json:"type"`
	OK             bool     `json:"ok"`
	Data           any      `json:"data,omitempty"`
	Error          string   `json:"error,omitempty"`
	TaskGID        string   `json:"task_gid,omitempty"`
	TagGIDs        []string `json:"tag_gids,omitempty"`
	RemovedTagGIDs []string `json:"removed_tag_gids,omitempty"`
	SkippedTags    []string `json:"skipped_tags,omitempty"`
	SectionGID     string   `json:"section_gid,omitempty"`
	AssigneeGID    string   `json:"assignee_gid,omitempty"`

	Err error `json:"-"`
}

type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

const (
	EventActionStart    = "action_start"
	EventActionComplete = "action_complete"
	EventActionError    = "action_error"
)

type Event struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Kind  string `json:"action_type"`
	Error string `json:"error,omitempty"`
}

// Executor runs batches. It keeps no state between batches; every call gets a
// fresh gateway and resolver cache.
type Executor struct {
	Connect GatewayFactory
	Logger  *slog.Logger
	Observe func(Event)
}

func NewExecutor(connect GatewayFactory, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{Connect: connect, Logger: logger}
}

// ExecuteBatch dispatches every descriptor in order and returns exactly one
// result per descriptor. Only an empty batch fails the call itself.
func (e *Executor) ExecuteBatch(ctx context.Context, batch []json.RawMessage, creds coreagent.Credentials) ([]ActionResult, error) {
	if len(batch) == 0 {
		return nil, coreagent.ErrEmptyBatch
	}
	if e.Connect == nil {
		return nil, errors.New("executor has no gateway factory")
	}
	logger := e.logger()
	gw := e.Connect(creds)
	resolver := NewResolver(gw, logger)
	dispatcher := NewDispatcher(gw, resolver, creds, logger)

	return runIsolated(batch, func(idx int, raw json.RawMessage) ActionResult {
		return e.step(ctx, dispatcher, idx, raw)
	}), nil
}

func (e *Executor) step(ctx context.Context, d *Dispatcher, idx int, raw json.RawMessage) ActionResult {
	res := ActionResult{Index: idx, Type: coreagent.PeekKind(raw)}
	e.emit(Event{Type: EventActionStart, Index: idx, Kind: res.Type})

	action, err := coreagent.ParseAction(raw)
	if err != nil {
		return e.fail(ctx, res, err)
	}
	res.Type = string(action.Kind())
	outcome, err := d.Dispatch(ctx, action)
	if err != nil {
		return e.fail(ctx, res, err)
	}
	res.OK = true
	res.Data = outcome.Data
	res.TaskGID = outcome.TaskGID
	res.TagGIDs = outcome.TagGIDs
	res.RemovedTagGIDs = outcome.RemovedTagGIDs
	res.SkippedTags = outcome.SkippedTags
	res.SectionGID = outcome.SectionGID
	res.AssigneeGID = outcome.AssigneeGID
	e.emit(Event{Type: EventActionComplete, Index: idx, Kind: res.Type})
	return res
}

func (e *Executor) fail(ctx context.Context, res ActionResult, err error) ActionResult {
	res.OK = false
	res.Err = err
	res.Error = err.Error()
	e.logger().WarnContext(ctx, "action failed", "index", res.Index, "type", res.Type, "error", err)
	e.emit(Event{Type: EventActionError, Index: res.Index, Kind: res.Type, Error: res.Error})
	return res
}

func (e *Executor) emit(ev Event) {
	if e.Observe != nil {
		e.Observe(ev)
	}
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// runIsolated maps items through step strictly in order. A panic inside one
// step becomes a failed result at that index and the fold continues.
func runIsolated[T any](items []T, step func(idx int, item T) ActionResult) []ActionResult {
	results := make([]ActionResult, len(items))
	for i, item := range items {
		results[i] = isolate(i, item, step)
	}
	return results
}

func isolate[T any](idx int, item T, step func(idx int, item T) ActionResult) (res ActionResult) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("action panicked: %v", p)
			res = ActionResult{Index: idx, OK: false, Error: err.Error(), Err: err}
			if raw, ok := any(item).(json.RawMessage); ok {
				res.Type = coreagent.PeekKind(raw)
			}
		}
	}()
	res = step(idx, item)
	res.Index = idx
	return res
}

func Summarize(results []ActionResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.OK {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
