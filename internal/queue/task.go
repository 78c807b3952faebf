package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Target addresses a queue on a named connection
type Target struct {
	Connection string `json:"connection"`
	Queue      string `json:"queue"`
}

func (t Target) String() string {
	return t.Connection + ":" + t.Queue
}

// Policy is the retry contract a job declares
type Policy struct {
	// MaxAttempts bounds the number of executions, including the first
	MaxAttempts int `json:"max_attempts"`
	// MaxExceptions bounds panics and timeouts. Zero means unbounded.
	MaxExceptions int             `json:"max_exceptions,omitempty"`
	Timeout       time.Duration   `json:"timeout"`
	Backoff       []time.Duration `json:"backoff,omitempty"`
	// RetryFor caps the retry horizon from the dispatch time. Zero means none.
	RetryFor time.Duration `json:"retry_for,omitempty"`
	// UniqueFor is the uniqueness lock TTL
	UniqueFor time.Duration `json:"unique_for,omitempty"`
}

// BackoffFor returns the delay before the next run after the given number
// of failed attempts. The last step repeats once the schedule runs out.
func (p Policy) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 || attempt <= 0 {
		return 0
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}

func (p Policy) lockTTL() time.Duration {
	if p.UniqueFor > 0 {
		return p.UniqueFor
	}
	if p.RetryFor > 0 {
		return p.RetryFor + p.Timeout
	}
	return time.Hour
}

// Job is a unit of work that can be dispatched. The value itself is
// serialized as the task payload.
type Job interface {
	JobName() string
	Policy() Policy
	// UniqueKey returns "" for jobs that allow concurrent duplicates
	UniqueKey() string
}

// Task is the queued envelope around a job payload
type Task struct {
	ID          string          `json:"id"`
	Job         string          `json:"job"`
	Payload     json.RawMessage `json:"payload"`
	Connection  string          `json:"connection"`
	Queue       string          `json:"queue"`
	UniqueKey   string          `json:"unique_key,omitempty"`
	Attempts    int             `json:"attempts"`
	Exceptions  int             `json:"exceptions"`
	CreatedAt   time.Time       `json:"created_at"`
	AvailableAt time.Time       `json:"available_at"`
	RetryUntil  time.Time       `json:"retry_until,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Policy      Policy          `json:"policy"`
}

// Target returns where the task lives
func (t *Task) Target() Target {
	return Target{Connection: t.Connection, Queue: t.Queue}
}

// Decode unmarshals the payload into v
func (t *Task) Decode(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return Fatal(fmt.Errorf("decode %s payload: %w", t.Job, err))
	}
	return nil
}

// SetPayload replaces the payload so the next attempt sees v
func (t *Task) SetPayload(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", t.Job, err)
	}
	t.Payload = raw
	return nil
}

// Expired reports whether the retry horizon has passed
func (t *Task) Expired(now time.Time) bool {
	return !t.RetryUntil.IsZero() && !now.Before(t.RetryUntil)
}

// FailedTask is a dead-lettered task
type FailedTask struct {
	Task     Task      `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
