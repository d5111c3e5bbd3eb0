package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcileBalance verifies the bank movement balance against the ledger.
	TaskReconcileBalance = "finanzas:reconcile"
)

// ReconcilePayload scopes a reconciliation run. An empty periodo checks the
// global movement balance.
type ReconcilePayload struct {
	Periodo string `json:"periodo,omitempty"`
}

// NewReconcileTask constructs an Asynq task.
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileBalance, data), nil
}
