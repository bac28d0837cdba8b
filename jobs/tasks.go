package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail sends a transactional email, optionally with a PDF
	// attachment referenced by object key.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePORender renders a purchase order PDF and stores it.
	TaskTypePORender = "po:render"
	// TaskTypeDraftSweep cancels stale draft purchase requests.
	TaskTypeDraftSweep = "procure:sweep"
)

// SendEmailPayload describes the information required to send an email.
// AttachmentKey, when set, names a stored PDF to attach.
type SendEmailPayload struct {
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	AttachmentKey string `json:"attachment_key,omitempty"`
}

// NewSendEmailTask constructs a send-email task. Mail is delivered in a
// single attempt; a failed send surfaces to the caller instead of retrying.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}

// PORenderPayload identifies the purchase order to render.
type PORenderPayload struct {
	POID int64 `json:"po_id"`
}

// NewPORenderTask constructs a po:render task.
func NewPORenderTask(poID int64) (*asynq.Task, error) {
	data, err := json.Marshal(PORenderPayload{POID: poID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePORender, data, asynq.Queue(QueueDefault)), nil
}

// NewDraftSweepTask constructs the nightly sweep task. The sweep age comes
// from worker configuration, so the payload is empty.
func NewDraftSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeDraftSweep, nil, asynq.Queue(QueueDefault))
}
