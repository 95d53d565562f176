// Package triggers implements the trigger nodes. Triggers perform no
// external effect: they mark the start of a run and pass the context
// through, optionally seeded from the trigger payload.
package triggers

import (
	"context"

	"github.com/weftlabs/weft/pkg/api"
)

// Manual is the manual execution trigger. The run was started by a user
// pressing execute; there is no payload to seed.
type Manual struct{}

var _ api.Executor = Manual{}

func (Manual) Type() api.NodeType { return api.NodeTypeManualTrigger }

func (Manual) Execute(ctx context.Context, req api.ExecRequest) (api.Context, error) {
	return req.Context, nil
}

// GoogleForm seeds the context with the form submission carried by the
// triggering event, under the key downstream templates reference as
// formSubmission.
type GoogleForm struct{}

var _ api.Executor = GoogleForm{}

func (GoogleForm) Type() api.NodeType { return api.NodeTypeGoogleFormTrigger }

func (GoogleForm) Execute(ctx context.Context, req api.ExecRequest) (api.Context, error) {
	if len(req.TriggerPayload) == 0 {
		return req.Context, nil
	}
	return req.Context.With("formSubmission", req.TriggerPayload), nil
}

// Stripe seeds the context with the payment event carried by the
// triggering webhook, under the key stripeEvent.
type Stripe struct{}

var _ api.Executor = Stripe{}

func (Stripe) Type() api.NodeType { return api.NodeTypeStripeTrigger }

func (Stripe) Execute(ctx context.Context, req api.ExecRequest) (api.Context, error) {
	if len(req.TriggerPayload) == 0 {
		return req.Context, nil
	}
	return req.Context.With("stripeEvent", req.TriggerPayload), nil
}
