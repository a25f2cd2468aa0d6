package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// StartRunRequest contains parameters for starting a catalog process
	StartRunRequest struct {
		ProcessID string           `json:"process_id"`
		Values    map[api.Name]any `json:"values,omitempty"`
	}

	// ApprovalRequest feeds an approval decision into a suspended run
	ApprovalRequest struct {
		Step        string           `json:"step"`
		Approved    bool             `json:"approved"`
		Comments    string           `json:"comments,omitempty"`
		Replacement map[api.Name]any `json:"replacement,omitempty"`
		Approver    string           `json:"approver,omitempty"`
	}

	// RunsListResponse lists the suspended runs awaiting input
	RunsListResponse struct {
		Runs  []api.RunID `json:"runs"`
		Count int         `json:"count"`
	}
)

var ErrUnknownProcess = errors.New("unknown catalog process")

func (s *Server) listRuns(c *gin.Context) {
	ids, err := s.store.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunsListResponse{
		Runs:  ids,
		Count: len(ids),
	})
}

func (s *Server) getRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))
	state, err := s.store.Load(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			notFound(c, err)
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) startRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	def, ok := s.catalog.Find(req.ProcessID)
	if !ok {
		notFound(c, fmt.Errorf("%w: %s", ErrUnknownProcess, req.ProcessID))
		return
	}

	proc, err := s.buildProcess(def)
	if err != nil {
		serverError(c, err)
		return
	}

	state := api.NewState()
	for name, value := range req.Values {
		state.Set(name, value)
	}

	result, err := s.runner.Run(c.Request.Context(), proc, state)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) recordApproval(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	state, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			notFound(c, err)
			return
		}
		serverError(c, err)
		return
	}

	state.Set(api.ApprovalKey(req.Step), &api.ApprovalDecision{
		Approved:    req.Approved,
		Comments:    req.Comments,
		Replacement: req.Replacement,
		Approver:    req.Approver,
		DecidedAt:   time.Now(),
	})

	if err := s.store.Save(ctx, id, state); err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{
		Message: "approval recorded",
	})
}

func (s *Server) resumeRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))

	var req struct {
		ProcessID string `json:"process_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	def, ok := s.catalog.Find(req.ProcessID)
	if !ok {
		notFound(c, fmt.Errorf("%w: %s", ErrUnknownProcess, req.ProcessID))
		return
	}

	proc, err := s.buildProcess(def)
	if err != nil {
		serverError(c, err)
		return
	}

	result, err := s.runner.Resume(c.Request.Context(), proc, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			notFound(c, err)
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusBadRequest,
	})
}

func notFound(c *gin.Context, err error) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusNotFound,
	})
}

func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusInternalServerError,
	})
}
