package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMonthlyReport renders the previous month's sales summary and
	// emails it to record owners.
	TaskMonthlyReport = "report:monthly_email"
)

// MonthlyReportPayload scopes a monthly report run. A zero UserID means
// every active user.
type MonthlyReportPayload struct {
	UserID int64 `json:"user_id"`
	Year   int   `json:"year"`
	Month  int   `json:"month"`
}

// NewMonthlyReportTask constructs an Asynq task.
func NewMonthlyReportTask(payload MonthlyReportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMonthlyReport, data), nil
}
