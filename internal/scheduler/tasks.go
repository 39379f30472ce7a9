package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationEmail = "notification.email"

// NotificationEmailPayload carries one rendered-at-send-time email.
type NotificationEmailPayload struct {
	TenantID       string `json:"tenantId"`
	UserID         string `json:"userId"`
	NotificationID string `json:"notificationId,omitempty"`
	ToEmail        string `json:"toEmail"`
	ToName         string `json:"toName,omitempty"`
	Subject        string `json:"subject"`
	Heading        string `json:"heading"`
	Body           string `json:"body"`
	CTALabel       string `json:"ctaLabel,omitempty"`
	CTAURL         string `json:"ctaUrl,omitempty"`
}

func NewNotificationEmailTask(payload NotificationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationEmail, data), nil
}

func ParseNotificationEmailPayload(task *asynq.Task) (NotificationEmailPayload, error) {
	var payload NotificationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationEmailPayload{}, err
	}
	return payload, nil
}
