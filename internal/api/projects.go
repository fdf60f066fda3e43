package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func (h *handler) handleListProjects(c *gin.Context) {
	projects, err := h.tasks.ListProjects()
	if err != nil {
		h.fail(c, err, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	c.JSON(http.StatusOK, projects)
}

func (h *handler) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	p, err := req.project()
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	created, err := h.tasks.CreateProject(p)
	if err != nil {
		h.fail(c, err, "failed to create project")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) handleGetProject(c *gin.Context) {
	p, err := h.tasks.GetProject(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get project")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) handleUpdateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	patch, err := req.patch()
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	updated, err := h.tasks.UpdateProject(c.Param("id"), patch)
	if err != nil {
		h.fail(c, err, "failed to update project")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) handleListDependencies(c *gin.Context) {
	deps, err := h.tasks.ListDependencies(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list dependencies")
		return
	}
	if deps == nil {
		deps = []models.Dependency{}
	}
	c.JSON(http.StatusOK, deps)
}

func (h *handler) handleListAssignments(c *gin.Context) {
	as, err := h.tasks.ListAssignments(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to list assignments")
		return
	}
	if as == nil {
		as = []models.Assignment{}
	}
	c.JSON(http.StatusOK, as)
}
