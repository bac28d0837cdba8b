package procurement

import "context"

// Event kinds emitted by the procurement workflow.
const (
	EventCCSubmitted      = "cc_submitted"
	EventCCApproved       = "cc_approved"
	EventCCRejected       = "cc_rejected"
	EventDirectPOCreated  = "direct_po_created"
	EventDirectPOApproved = "direct_po_approved"
	EventDirectPORejected = "direct_po_rejected"
	EventPODelivered      = "po_delivered"
)

// WorkflowEvent carries enough context for the notification subsystem to
// build a user-facing message and fan it out. TargetRole addresses every
// user holding that role; TargetUserID addresses one user. One of the two
// must be set.
type WorkflowEvent struct {
	Kind         string
	Title        string
	Body         string
	Entity       string
	EntityID     int64
	TargetRole   string
	TargetUserID int64
	ActorID      int64
}

// Notifier receives workflow events. Delivery is best effort; the workflow
// never fails because a notification could not be written.
type Notifier interface {
	Publish(ctx context.Context, evt WorkflowEvent) error
}

func (s *Service) publish(ctx context.Context, evt WorkflowEvent) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Publish(ctx, evt)
}
