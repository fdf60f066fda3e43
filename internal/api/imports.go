package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

type importResponse struct {
	Project *models.Project    `json:"project,omitempty"`
	Result  *core.ImportResult `json:"result"`
}

// handleImportProject creates a project and reconciles the legacy records
// into it.
func (h *handler) handleImportProject(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	if req.Project.Name == "" {
		abort(c, newBadRequestError("project name is required"))
		return
	}
	p, err := req.Project.project()
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	project, res, err := h.importer.ImportProject(c.Request.Context(), p, req.Tasks)
	if err != nil {
		h.fail(c, err, "failed to import project")
		return
	}
	c.JSON(http.StatusCreated, importResponse{Project: project, Result: res})
}

// handleImportInto reconciles records into an existing project. The body is
// either a JSON list of records or an object with a tasks list.
func (h *handler) handleImportInto(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	raw, err := core.DecodeRawRecords(body)
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	res, err := h.importer.Reconcile(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		h.fail(c, err, "failed to import tasks")
		return
	}
	c.JSON(http.StatusOK, importResponse{Result: res})
}
