package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

type TaskType string

const (
	TaskTypeIngestCategory TaskType = "ingest_category"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetPublisher() string
	GetCategory() string
	Start()
	GetDuration() time.Duration
}

var _ TaskInterface = (*IngestCategoryTask)(nil)

var taskSeq atomic.Uint64

type Task struct {
	ID        string
	Type      TaskType
	Publisher string
	Category  string
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetPublisher() string {
	return t.Publisher
}

func (t *Task) GetCategory() string {
	return t.Category
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// NewTask numbers tasks per process so log lines of parallel categories can
// be told apart.
func NewTask(taskType TaskType, publisher, category string) Task {
	return Task{
		ID:        fmt.Sprintf("%s/%s#%d", publisher, category, taskSeq.Add(1)),
		Type:      taskType,
		Publisher: publisher,
		Category:  category,
	}
}
