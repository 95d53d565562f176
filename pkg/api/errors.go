package api

import (
	"errors"
	"fmt"
)

// CycleError reports that a workflow graph cannot be ordered. It is fatal
// and surfaced before any node runs.
type CycleError struct{}

func (e *CycleError) Error() string { return "workflow contains a cycle" }

// IsCycleError reports whether err is a CycleError.
func IsCycleError(err error) bool {
	var c *CycleError
	return errors.As(err, &c)
}

// ConfigurationError reports a missing or malformed node configuration
// field. Non-retriable: re-running the node with the same config cannot
// succeed.
type ConfigurationError struct {
	NodeID string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("node %s: invalid field %q: %s", e.NodeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("node %s: missing required field %q", e.NodeID, e.Field)
}

// NewConfigurationError reports a required field that is absent.
func NewConfigurationError(nodeID, field string) error {
	return &ConfigurationError{NodeID: nodeID, Field: field}
}

// NewMalformedConfigError reports a field that is present but unusable.
func NewMalformedConfigError(nodeID, field, reason string) error {
	return &ConfigurationError{NodeID: nodeID, Field: field, Reason: reason}
}

// CredentialError reports that a credential is missing or not owned by the
// acting user. The two cases are deliberately indistinguishable so that
// ownership is not leaked through error messages. Non-retriable.
type CredentialError struct {
	NodeID       string
	CredentialID string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("node %s: credential %s not found", e.NodeID, e.CredentialID)
}

// ExecutionError reports that a node's side effect failed: a network error,
// a non-2xx response, or a provider error. Non-retriable at the node level;
// retry applies to the run as a whole.
type ExecutionError struct {
	NodeID string
	Cause  string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// NewExecutionError wraps a failed side effect with a human-readable cause.
func NewExecutionError(nodeID, cause string, err error) error {
	return &ExecutionError{NodeID: nodeID, Cause: cause, Err: err}
}

// UnregisteredNodeTypeError reports that no executor is registered for a
// node's type. It indicates a configuration or version mismatch between
// editor and engine.
type UnregisteredNodeTypeError struct {
	NodeType NodeType
}

func (e *UnregisteredNodeTypeError) Error() string {
	return fmt.Sprintf("no executor registered for node type %s", e.NodeType)
}
