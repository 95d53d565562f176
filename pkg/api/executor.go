package api

import (
	"context"
	"net/http"
	"strings"
)

// StepRunner executes a named unit of side-effecting work at most once per
// run. The first invocation for a given key runs fn, persists its result,
// and returns it. Any later invocation with the same key (within the same
// run, including replays after a run-level retry) returns the recorded
// result without calling fn again.
//
// Step keys must be stable within a run; callers derive them from the node
// id plus a fixed suffix.
type StepRunner interface {
	Run(ctx context.Context, stepKey string, fn func(ctx context.Context) (any, error)) (any, error)
}

// CredentialSource resolves a stored credential to its decrypted secret.
// Lookup is scoped by both id and owning user: a credential belonging to a
// different user resolves as not found. The returned secret must be used
// within the current step only and never written to a Context.
type CredentialSource interface {
	Resolve(ctx context.Context, credentialID, userID string) (string, error)
}

// TopicStatus is the fixed topic node status events are published on.
const TopicStatus = "status"

// StatusEvent is the payload delivered to realtime subscribers. A
// subscriber connects to a per-node-type channel and filters by NodeID
// client-side.
type StatusEvent struct {
	NodeID string     `json:"nodeId"`
	Status NodeStatus `json:"status"`
}

// Publisher delivers status events to the realtime transport. Publishing
// is fire-and-forget from the engine's perspective: a publish failure must
// never fail the node's actual execution.
type Publisher interface {
	Publish(ctx context.Context, channel, topic string, event StatusEvent) error
}

// ChannelFor maps a node type to its realtime channel name, e.g.
// HTTP_REQUEST -> "http-request".
func ChannelFor(t NodeType) string {
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", "-")
}

// NoopPublisher drops all events. Used when no realtime transport is
// configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, channel, topic string, event StatusEvent) error {
	return nil
}

// ExecRequest carries everything an executor needs for one invocation.
// Provider clients and durability primitives are injected here rather than
// held in package globals, so executors stay deterministic and testable.
type ExecRequest struct {
	Node   Node
	RunID  string
	UserID string

	// Context is the cumulative context produced by all prior nodes.
	Context Context

	// TriggerPayload is the payload carried by the event that started this
	// run. Trigger executors may seed the context from it; action executors
	// ignore it.
	TriggerPayload map[string]any

	Steps       StepRunner
	Credentials CredentialSource

	// HTTP is the client for outbound side effects. The engine's default
	// client carries a 30 second timeout.
	HTTP *http.Client

	// Publisher is available for executors that emit progress events beyond
	// the engine's own loading/terminal pair. The built-in executors do not
	// use it.
	Publisher Publisher
}

// Executor is the type-specific implementation of a node's runtime
// behavior. Execute returns the input context extended with the node's
// result under its configured variable name; it must not mutate the input
// context.
type Executor interface {
	Type() NodeType
	Execute(ctx context.Context, req ExecRequest) (Context, error)
}
