// Package weft provides an embeddable workflow execution engine for Go.
//
// Weft runs editor-authored workflow graphs: nodes wired by connections,
// ordered deterministically, executed sequentially with an accumulating
// context, durable idempotent side effects, and per-node status events
// for a live UI. It runs fully in Go, supports multiple persistence
// backends, and integrates cleanly into existing backends.
//
// # Core Concepts
//
//  1. Workflow — nodes plus connections, authored in an editor
//  2. Engine — orders the graph and drives runs to a terminal status
//  3. Executor — the runtime behavior of one node type
//  4. Run — one end-to-end execution with its context and statuses
//  5. Worker — consumes queued trigger events asynchronously
//
// # Engine
//
// The Engine stores workflow definitions and credentials, orders a
// workflow's graph (rejecting cycles before any node runs), and executes
// the ordered sequence fail-fast: the first node error stops the run and
// the context as of the last successful node is the final observable
// state. Runs can be retried; steps recorded during a failed attempt
// return their memoized results so completed side effects are never
// repeated.
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Redis (runs and step records)
//
// # Node types
//
// The built-in executors cover triggers (manual, Google Form, Stripe),
// outbound HTTP requests, language model completions (OpenAI, Anthropic,
// Gemini), and chat webhooks (Discord, Slack). Custom node types register
// through Engine.RegisterExecutor.
//
// Node configuration is templated: {{path.to.value}} interpolates a
// context value produced by an upstream node, and {{json path}} renders
// it as indented JSON.
//
// # Status events
//
// Every node publishes loading before its effect and exactly one of
// success or error when it finishes, on a channel named after the node
// type. Use NewMemoryPublisher in-process or NewRedisPublisher to fan out
// over Redis pub/sub.
//
// # Quick start
//
//	eng := weft.NewInMemoryEngine(weft.Options{})
//	_ = eng.SaveWorkflow(ctx, weft.Workflow{
//		ID:     "wf-1",
//		UserID: "alice",
//		Nodes: []weft.Node{
//			{ID: "t", Type: "MANUAL_TRIGGER"},
//			{ID: "fetch", Type: "HTTP_REQUEST", Config: map[string]any{
//				"endpoint": "https://api.example.com/todos/1",
//			}},
//		},
//		Connections: []weft.Connection{{FromNodeID: "t", ToNodeID: "fetch"}},
//	})
//	run, err := eng.Trigger(ctx, weft.TriggerEvent{WorkflowID: "wf-1", UserID: "alice"})
//
// For asynchronous execution, wire a Worker to a queue with NewLocalRunner
// or NewSQLiteBundle.
package weft
