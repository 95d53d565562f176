package api

// NodeType identifies the runtime behavior of a node. The set is closed:
// the engine dispatches through a static executor registry, never through
// reflection.
type NodeType string

const (
	// NodeTypeInitial is the editor's placeholder node. It has no executor;
	// reaching one at run time is an UnregisteredNodeTypeError.
	NodeTypeInitial NodeType = "INITIAL"

	NodeTypeManualTrigger     NodeType = "MANUAL_TRIGGER"
	NodeTypeGoogleFormTrigger NodeType = "GOOGLE_FORM_TRIGGER"
	NodeTypeStripeTrigger     NodeType = "STRIPE_TRIGGER"

	NodeTypeHTTPRequest NodeType = "HTTP_REQUEST"
	NodeTypeOpenAI      NodeType = "OPENAI"
	NodeTypeAnthropic   NodeType = "ANTHROPIC"
	NodeTypeGemini      NodeType = "GEMINI"
	NodeTypeDiscord     NodeType = "DISCORD"
	NodeTypeSlack       NodeType = "SLACK"
)

// Node is a unit of work in a workflow graph. Config is authored in the
// editor before execution and is immutable once a run starts.
type Node struct {
	ID     string         `json:"id"`
	Type   NodeType       `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Connection is a directed edge between two nodes. Data does not flow along
// connections; they only constrain execution order. Inter-node data moves
// through the run's Context.
type Connection struct {
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
}

// Workflow owns an unordered set of nodes and their connections.
type Workflow struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Name        string       `json:"name"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Context is the accumulating key/value store threaded through a run.
// Keys are producer-chosen variable names; values are JSON-like payloads.
//
// Contexts have value semantics: executors receive the current context and
// return a new one via With, so a failed node's partial writes can never
// leak into the context observed by the next node. Keys are never removed;
// re-using a variable name overwrites with last-write-wins.
type Context map[string]any

// Clone returns a shallow copy of the context. Values are shared; by
// contract they are treated as immutable once published.
func (c Context) Clone() Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of the context extended with key=value.
// The receiver is not modified.
func (c Context) With(key string, value any) Context {
	out := c.Clone()
	out[key] = value
	return out
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// NodeStatus is the per-node status surfaced to the UI over the realtime
// channel. A node starts as initial, moves to loading when its executor is
// invoked, and ends in exactly one of success or error. It never
// transitions again within the same run.
type NodeStatus string

const (
	NodeInitial NodeStatus = "initial"
	NodeLoading NodeStatus = "loading"
	NodeSuccess NodeStatus = "success"
	NodeError   NodeStatus = "error"
)

// Run is one end-to-end execution of a workflow's ordered node sequence.
type Run struct {
	ID         string
	WorkflowID string
	UserID     string
	Status     RunStatus

	// TriggerPayload is the payload the triggering event carried. It is kept
	// for deterministic replay on Retry.
	TriggerPayload map[string]any

	// Context is the cumulative execution context: the final context on
	// completion, or the context as of the last successful node on failure.
	Context Context

	// NodeStatuses tracks the terminal per-node statuses for this run.
	NodeStatuses map[string]NodeStatus

	// CurrentNode is the index into the ordered node sequence:
	// 0 before any node runs, i while node i runs, len(order) when done.
	CurrentNode int

	Err error
}

// TriggerEvent starts a run. It is delivered by an external trigger source
// (manual execution, form submission, payment event) or dequeued by a
// worker.
type TriggerEvent struct {
	WorkflowID string         `json:"workflowId"`
	UserID     string         `json:"userId"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// RunListOptions filters ListRuns. Zero values mean "no filter".
type RunListOptions struct {
	WorkflowID string
	Status     RunStatus
}

// CredentialType identifies which provider a stored secret belongs to.
type CredentialType string

const (
	CredentialOpenAI    CredentialType = "OPENAI"
	CredentialAnthropic CredentialType = "ANTHROPIC"
	CredentialGemini    CredentialType = "GEMINI"
)

// Credential is a user-scoped secret as seen by callers. Value is the
// plaintext secret; it is encrypted before it reaches any store and is
// never written into a Context or run record.
type Credential struct {
	ID     string
	UserID string
	Type   CredentialType
	Value  string
}
