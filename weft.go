package weft

import (
	"database/sql"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/internal/credentials"
	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/realtime"
	"github.com/weftlabs/weft/nodes/httpreq"
	"github.com/weftlabs/weft/nodes/llm"
	"github.com/weftlabs/weft/nodes/triggers"
	"github.com/weftlabs/weft/nodes/webhook"
	"github.com/weftlabs/weft/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	Workflow             = api.Workflow
	Node                 = api.Node
	NodeType             = api.NodeType
	Connection           = api.Connection
	Context              = api.Context
	Run                  = api.Run
	RunStatus            = api.RunStatus
	NodeStatus           = api.NodeStatus
	RunListOptions       = api.RunListOptions
	TriggerEvent         = api.TriggerEvent
	Credential           = api.Credential
	CredentialType       = api.CredentialType
	Executor             = api.Executor
	ExecRequest          = api.ExecRequest
	StatusEvent          = api.StatusEvent
	Publisher            = api.Publisher
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	// Cipher seals and opens credential secrets at rest.
	Cipher = credentials.Cipher
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values for convenience.

const (
	RunPending   = api.RunPending
	RunRunning   = api.RunRunning
	RunCompleted = api.RunCompleted
	RunFailed    = api.RunFailed
)

// Options configures the optional collaborators of an engine. The zero
// value is usable: no realtime events, no logging, a default 30 second
// HTTP client, and credential storage disabled until a cipher is set.
type Options struct {
	// Publisher receives node status events. Nil means events are dropped.
	Publisher api.Publisher

	// Observer receives run and node lifecycle callbacks. Nil means none.
	Observer api.Observer

	// Cipher encrypts credentials at rest. Use NewAESCipher, or leave nil
	// for workflows that hold no credentials.
	Cipher credentials.Cipher

	// HTTPClient is used for all outbound node side effects.
	HTTPClient *http.Client
}

func (o Options) engineConfig() engine.Config {
	return engine.Config{
		Publisher:  o.Publisher,
		Observer:   o.Observer,
		Cipher:     o.Cipher,
		HTTPClient: o.HTTPClient,
	}
}

// NewAESCipher returns an AES-256-GCM credential cipher. The key must be
// exactly 32 bytes.
func NewAESCipher(key []byte) (credentials.Cipher, error) {
	return credentials.NewAESGCM(key)
}

// SubscribablePublisher is a Publisher that also supports in-process
// subscriptions. Subscribe returns a channel of events for channel+topic
// and a cancel function that closes the subscription.
type SubscribablePublisher interface {
	api.Publisher
	Subscribe(channel, topic string) (<-chan api.StatusEvent, func())
}

// NewMemoryPublisher returns an in-process status publisher whose
// Subscribe method feeds UIs and tests.
func NewMemoryPublisher() SubscribablePublisher {
	return realtime.NewMemoryPublisher()
}

// NewRedisPublisher returns a status publisher that forwards events over
// Redis pub/sub, one channel per node type. Subscribers use PSUBSCRIBE on
// <prefix><channel>:status.
func NewRedisPublisher(client *redis.Client, prefix string) api.Publisher {
	return realtime.NewRedisPublisher(client, prefix)
}

// Engine constructors. These wrap the internal/engine package so external
// callers never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores,
// with the built-in executors registered.
func NewInMemoryEngine(opts Options) Engine {
	eng := engine.NewInMemory(opts.engineConfig())
	registerBuiltins(eng)
	return eng
}

// NewSQLiteEngine returns an Engine that persists workflows, runs, step
// records, and credentials in a SQLite database, with the built-in
// executors registered.
func NewSQLiteEngine(db *sql.DB, opts Options) (Engine, error) {
	eng, err := engine.NewSQLite(db, opts.engineConfig())
	if err != nil {
		return nil, err
	}
	registerBuiltins(eng)
	return eng, nil
}

// NewRedisEngine returns an Engine that persists runs and step records in
// Redis, with the built-in executors registered. Workflow definitions and
// credentials are kept in-memory.
func NewRedisEngine(client *redis.Client, opts Options) Engine {
	eng := engine.NewRedis(client, opts.engineConfig())
	registerBuiltins(eng)
	return eng
}

// Builtins returns the executors for every built-in node type. Use it to
// register the standard set on a custom engine, or as a starting point
// when mixing in executors of your own.
func Builtins() []Executor {
	return []Executor{
		triggers.Manual{},
		triggers.GoogleForm{},
		triggers.Stripe{},
		httpreq.New(),
		llm.New(&llm.OpenAI{}),
		llm.New(&llm.Anthropic{}),
		llm.New(&llm.Gemini{}),
		webhook.New(webhook.Discord{}),
		webhook.New(webhook.Slack{}),
	}
}

func registerBuiltins(eng Engine) {
	for _, ex := range Builtins() {
		// A fresh engine has no registrations; this cannot collide.
		_ = eng.RegisterExecutor(ex)
	}
}
