package domain

import "time"

// Job is the part of a prediction job record the worker needs to poll for its result
type Job struct {
	JobID     string
	Status    string
	WorkerID  string
	CreatedAt time.Time
}

// JobMessage represents a poll message from RabbitMQ
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
