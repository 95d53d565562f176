// Package api contains the core building blocks of the weft workflow
// engine: the data model (nodes, connections, workflows, runs), the
// executor contract, the durability and realtime interfaces, and the
// observer used for logging and metrics.
//
// Most users interact with the higher-level weft package, which re-exports
// selected types and provides engine constructors. The api package is
// intended for custom node executors, custom realtime transports, or
// contributors extending the engine itself.
//
// # Data model
//
// A Workflow owns an unordered set of Nodes and directed Connections.
// Connections constrain execution order only; data moves between nodes
// through the run's Context, an append-only key/value store each executor
// extends with one new key.
//
// # Executors
//
// An Executor implements one NodeType's runtime behavior. It receives an
// ExecRequest carrying the current context, the run's StepRunner and
// CredentialSource, and an injected HTTP client, and returns the extended
// context. Side effects must happen inside exactly one StepRunner call so
// that replaying a run never repeats an already-completed effect.
//
// # Status events
//
// The engine publishes a StatusEvent pair for every node it drives:
// loading before the executor is invoked, then exactly one of success or
// error. Events go to a channel named after the node type, on the fixed
// "status" topic, and a UI subscriber filters by node id.
//
// # Observability
//
// The Observer interface reports run and node lifecycle transitions.
// Ready-made implementations cover structured logging (log/slog), basic
// in-memory metrics, and fan-out composition.
package api
