package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskscope/internal/dto"
	apierrors "github.com/yukikurage/taskscope/internal/errors"
	"github.com/yukikurage/taskscope/internal/middleware"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/services"
	"github.com/yukikurage/taskscope/internal/utils"
)

// TaskHandler serves task CRUD and completion reports.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks visible to the current user.
// Supports ?status= and ?page=&limit=.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	input := services.ListTasksInput{Pagination: params}
	if s := c.Query("status"); s != "" {
		status := models.TaskStatus(s)
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(middleware.GetPrincipal(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// GetTask returns a specific task by ID.
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := middleware.GetIDParam(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.GetTask(middleware.GetPrincipal(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := req.ToInput()
	if err != nil {
		apierrors.ValidationFailed(c, err.Error(), []string{"due_date"})
		return
	}

	task, err := h.taskService.CreateTask(middleware.GetPrincipal(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, ok := middleware.GetIDParam(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := req.ToInput()
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(middleware.GetPrincipal(c), taskID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := middleware.GetIDParam(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	if err := h.taskService.DeleteTask(middleware.GetPrincipal(c), taskID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// GetTaskReport returns the completion report of a completed task.
func (h *TaskHandler) GetTaskReport(c *gin.Context) {
	taskID, ok := middleware.GetIDParam(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	report, err := h.taskService.Report(middleware.GetPrincipal(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskReportDTO(report))
}
