package gocommand

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

const (
	kindCommand = "command"
	kindQuery   = "query"
)

// ValidateMessageContract checks that msg has a non-empty Type() and, when it
// implements Validate(), that it validates.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	if _, err := messageTypeOf(msg); err != nil {
		return err
	}
	return nil
}

// RegistryAdapter wraps a go-command registry. It remembers which message
// types were bound through RegisterAndSubscribe so a second handler for the
// same soap message fails before the registry is initialized.
type RegistryAdapter struct {
	registry *command.Registry

	mu    sync.Mutex
	bound map[string]string
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry, bound: map[string]string{}}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

// MessageTypes lists the bound message types, sorted.
func (a *RegistryAdapter) MessageTypes() []string {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.bound))
	for messageType := range a.bound {
		out = append(out, messageType)
	}
	sort.Strings(out)
	return out
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(cmd)
}

// RegisterQuery goes through RegisterCommand: go-command keeps commands and
// queries in one registry keyed by message type.
func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if err := a.ready(); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("gocommand: resolver key is required")
	}
	return a.registry.AddResolver(key, resolver)
}

// AddQueueResolver mirrors registered handlers into a go-job queue registry so
// soap commands can also run as queued jobs.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a.ready() != nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.Initialize()
}

func (a *RegistryAdapter) ready() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return nil
}

func (a *RegistryAdapter) bind(messageType string, kind string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bound == nil {
		a.bound = map[string]string{}
	}
	if existing, ok := a.bound[messageType]; ok {
		return fmt.Errorf("gocommand: %s %q already bound as %s", kind, messageType, existing)
	}
	a.bound[messageType] = kind
	return nil
}

func (a *RegistryAdapter) release(messageType string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bound, messageType)
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

// Dispatch checks the message contract and hands msg to its subscribed
// command handler.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// RegisterAndSubscribe binds cmd in the registry and on the global
// dispatcher. Either both succeed or neither sticks.
func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	messageType, err := zeroMessageType[T]()
	if err != nil {
		return nil, err
	}
	if err := adapter.bind(messageType, kindCommand); err != nil {
		return nil, err
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		adapter.release(messageType)
		return nil, err
	}
	return SubscribeCommand(cmd, runnerOpts...), nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	messageType, err := zeroMessageType[T]()
	if err != nil {
		return nil, err
	}
	if err := adapter.bind(messageType, kindQuery); err != nil {
		return nil, err
	}
	if err := adapter.RegisterQuery(qry); err != nil {
		adapter.release(messageType)
		return nil, err
	}
	return SubscribeQuery(qry, runnerOpts...), nil
}

func zeroMessageType[T any]() (string, error) {
	var zero T
	return messageTypeOf(any(zero))
}

func messageTypeOf(msg any) (string, error) {
	typed, ok := msg.(command.Message)
	if !ok {
		return "", fmt.Errorf("gocommand: message %T must implement Type() string", msg)
	}
	messageType := strings.TrimSpace(typed.Type())
	if messageType == "" {
		return "", fmt.Errorf("gocommand: message type is required")
	}
	return messageType, nil
}
