package models

import (
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task is a to-do item owned by one user. Status is the source of truth;
// Completed is kept in sync with it on every write (see SyncCompleted).
type Task struct {
	ID          string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(10);default:'medium'"`
	DueDate     *time.Time   `json:"dueDate"`
	Completed   bool         `json:"completed"`
	OwnerID     string       `json:"ownerId" gorm:"index;not null"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// SyncCompleted derives the completed flag from the status field.
func (t *Task) SyncCompleted() {
	t.Completed = t.Status == TaskCompleted
}

// TaskCreate is the payload for creating a task.
type TaskCreate struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority    TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time   `json:"dueDate"`
}

// TaskUpdate is the payload for updating a task. Pointer fields distinguish
// "not sent" from zero values.
type TaskUpdate struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *TaskStatus   `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
	Priority    *TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time    `json:"dueDate"`
	Completed   *bool         `json:"completed"`
}
