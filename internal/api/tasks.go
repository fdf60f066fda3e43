package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func (h *handler) handleListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *handler) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	draft, err := req.draft()
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	created, err := h.tasks.CreateTask(c.Param("id"), draft)
	if err != nil {
		h.fail(c, err, "failed to create task")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) handleGetTask(c *gin.Context) {
	t, err := h.tasks.GetTask(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get task")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) handleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	patch, err := req.patch()
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	updated, err := h.tasks.UpdateTask(c.Param("id"), patch)
	if err != nil {
		h.fail(c, err, "failed to update task")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) handleDeleteTask(c *gin.Context) {
	if err := h.tasks.DeleteTask(c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete task")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleAddDependency(c *gin.Context) {
	var req addDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	dep, err := h.tasks.AddDependency(c.Param("id"), req.DependsOnID, req.Type)
	if err != nil {
		h.fail(c, err, "failed to add dependency")
		return
	}
	c.JSON(http.StatusCreated, dep)
}

func (h *handler) handleAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	a, err := h.tasks.AssignUser(c.Param("id"), req.UserID, req.Role)
	if err != nil {
		h.fail(c, err, "failed to assign user")
		return
	}
	c.JSON(http.StatusCreated, a)
}
