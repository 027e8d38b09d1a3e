package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task types shared by the API (producer) and the worker (consumer).
const (
	TypeEmailNotify = "email:notify"
	TypeEmailTest   = "email:test"
)

// EmailNotifyPayload asks the worker to email a candidate about a status.
type EmailNotifyPayload struct {
	CandidateID   string `json:"candidate_id"`
	Status        string `json:"status"`
	CustomMessage string `json:"custom_message,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// EmailTestPayload asks the worker to send a test message.
type EmailTestPayload struct {
	To            string `json:"to"`
	CorrelationID string `json:"correlation_id"`
}

func NewEmailNotifyTask(p EmailNotifyPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailNotify, payload, asynq.MaxRetry(3)), nil
}

func NewEmailTestTask(p EmailTestPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailTest, payload, asynq.MaxRetry(3)), nil
}
