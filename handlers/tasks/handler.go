package tasks

import (
	"errors"
	"net/http"
	"time"

	"taskmgr-backend/middleware"
	"taskmgr-backend/models"
	"taskmgr-backend/repository"
	"taskmgr-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handler struct {
	tasks repository.TaskRepository
}

func New(tasks repository.TaskRepository) *Handler {
	return &Handler{tasks: tasks}
}

// ListTasks returns the caller's tasks, newest first.
// @Summary List tasks
// @Description Return all tasks owned by the authenticated user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Task
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	tasks, err := h.tasks.ListByOwner(c.Request.Context(), caller.UserID)
	if err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error listing tasks in ListTasks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching tasks"})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// GetTask returns one task owned by the caller.
// @Summary Get a task
// @Description Return one task by id; the task must belong to the authenticated user
// @Tags tasks
// @Produce json
// @Param taskId path string true "ID of the task"
// @Security BearerAuth
// @Success 200 {object} models.Task
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Task not found"
// @Router /tasks/{taskId} [get]
func (h *Handler) GetTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID := c.Param("taskId")
	if _, err := uuid.Parse(taskID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, _ := h.loadOwned(c, caller.UserID, taskID)
	if task == nil {
		return
	}

	c.JSON(http.StatusOK, task)
}

// CreateTask creates a task for the caller.
// @Summary Create a task
// @Description Create a task owned by the authenticated user. The due date, when present, must be in the future.
// @Tags tasks
// @Accept json
// @Produce json
// @Param task body models.TaskCreate true "Task information"
// @Security BearerAuth
// @Success 201 {object} models.Task
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.TaskCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if input.DueDate != nil && !input.DueDate.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Due date must be in the future"})
		return
	}

	task := models.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		OwnerID:     caller.UserID,
	}
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	task.SyncCompleted()

	if err := h.tasks.Create(c.Request.Context(), &task); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error creating task in CreateTask")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating task"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Task created successfully in CreateTask")
	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates a task owned by the caller. Status is the source of
// truth for completion: sending completed=true is treated as moving the task
// to the completed status.
// @Summary Update a task
// @Description Update fields of a task owned by the authenticated user
// @Tags tasks
// @Accept json
// @Produce json
// @Param taskId path string true "ID of the task"
// @Param task body models.TaskUpdate true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} models.Task
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Task not found"
// @Router /tasks/{taskId} [put]
func (h *Handler) UpdateTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID := c.Param("taskId")
	if _, err := uuid.Parse(taskID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var input models.TaskUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	task, _ := h.loadOwned(c, caller.UserID, taskID)
	if task == nil {
		return
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Status != nil {
		task.Status = *input.Status
	} else if input.Completed != nil {
		if *input.Completed {
			task.Status = models.TaskCompleted
		} else if task.Status == models.TaskCompleted {
			task.Status = models.TaskPending
		}
	}
	task.SyncCompleted()

	if err := h.tasks.Update(c.Request.Context(), task); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error updating task in UpdateTask")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating task"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Task updated successfully in UpdateTask")
	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task owned by the caller.
// @Summary Delete a task
// @Description Delete a task owned by the authenticated user
// @Tags tasks
// @Produce json
// @Param taskId path string true "ID of the task"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Task deleted successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Task not found"
// @Router /tasks/{taskId} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	taskID := c.Param("taskId")
	if _, err := uuid.Parse(taskID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, _ := h.loadOwned(c, caller.UserID, taskID)
	if task == nil {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), task.ID); err != nil {
		utils.LogErrorWithUser(caller.UserID, err, "Error deleting task in DeleteTask")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting task"})
		return
	}

	utils.LogSuccessWithUser(caller.UserID, "Task deleted successfully in DeleteTask")
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// loadOwned fetches the task and enforces ownership. On failure it writes
// the response and returns nil. Foreign tasks answer 404, not 403, so ids
// are not probeable.
func (h *Handler) loadOwned(c *gin.Context, userID, taskID string) (*models.Task, error) {
	task, err := h.tasks.GetByID(c.Request.Context(), taskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, err
	}
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error loading task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching task"})
		return nil, err
	}
	if task.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, nil
	}
	return task, nil
}
