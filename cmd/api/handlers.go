package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/operashorts/internal/failure"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/logging"
	"github.com/therealutkarshpriyadarshi/operashorts/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/operashorts/pkg/models"
)

// multipartMemory is how much of an upload is buffered in memory before spilling to disk
const multipartMemory = 32 << 20

// ProjectService is the pipeline surface the handlers use
type ProjectService interface {
	CreateFromUpload(ctx context.Context, req pipeline.CreateRequest, filename string, src io.Reader) (*models.ProductionProject, error)
	CreateFromURL(ctx context.Context, req pipeline.CreateRequest, url string) (*models.ProductionProject, error)
	Get(ctx context.Context, id string) (*models.ProductionProject, error)
	List(ctx context.Context, limit, offset int) ([]*models.ProductionProject, error)
	Status(ctx context.Context, id string) (*models.ProjectStatus, error)
	Delete(ctx context.Context, id string) error
	Trigger(ctx context.Context, id string, stage pipeline.Stage) (models.Status, error)
	UpdateOverlay(ctx context.Context, id string, overlay models.Captions, approved bool) (*models.ProjectStatus, error)
	UpdatePost(ctx context.Context, id, post string, approved bool) (*models.ProjectStatus, error)
	ExportListing(ctx context.Context, id string) (*pipeline.ExportListing, error)
}

// API serves the production pipeline over HTTP
type API struct {
	svc            ProjectService
	health         func(ctx context.Context) error
	logger         *logging.Logger
	maxUploadBytes int64
}

type overlayRequest struct {
	Content  models.Captions `json:"content" binding:"required"`
	Approved bool            `json:"approved"`
}

type postRequest struct {
	Content  string `json:"content" binding:"required"`
	Approved bool   `json:"approved"`
}

func setupRouter(api *API, middlewares ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares...)

	// Health check
	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/projects", api.createProject)
		v1.GET("/projects", api.listProjects)
		v1.GET("/projects/:id", api.getProject)
		v1.GET("/projects/:id/status", api.getStatus)
		v1.DELETE("/projects/:id", api.deleteProject)

		// Stages
		for _, stage := range pipeline.Stages() {
			v1.POST("/projects/:id/"+strings.ReplaceAll(stage.String(), "_", "-"), api.triggerStage(stage))
		}

		// Approval gates
		v1.PUT("/projects/:id/overlay", api.updateOverlay)
		v1.PUT("/projects/:id/post", api.updatePost)

		v1.GET("/projects/:id/export", api.exportListing)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if api.health != nil {
		if err := api.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Create project endpoint
func (api *API) createProject(c *gin.Context) {
	if api.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.writeError(c, err)
			return
		}
		api.writeError(c, failure.Validation("invalid multipart form: %v", err))
		return
	}

	req, err := parseCreateRequest(c)
	if err != nil {
		api.writeError(c, err)
		return
	}

	var project *models.ProductionProject
	if videoURL := strings.TrimSpace(c.PostForm("video_url")); videoURL != "" {
		project, err = api.svc.CreateFromURL(c.Request.Context(), req, videoURL)
	} else {
		file, ferr := c.FormFile("video")
		if ferr != nil {
			api.writeError(c, failure.Validation("a video file or video_url is required"))
			return
		}
		src, ferr := file.Open()
		if ferr != nil {
			api.writeError(c, failure.Validation("failed to read uploaded video"))
			return
		}
		defer src.Close()
		project, err = api.svc.CreateFromUpload(c.Request.Context(), req, file.Filename, src)
	}
	if err != nil {
		api.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     project.ID,
		"status": project.Status,
	})
}

func parseCreateRequest(c *gin.Context) (pipeline.CreateRequest, error) {
	req := pipeline.CreateRequest{
		Artist:         c.PostForm("artist"),
		Song:           c.PostForm("song"),
		Hook:           c.PostForm("hook"),
		Language:       c.PostForm("language"),
		OfficialLyrics: c.PostForm("official_lyrics"),
	}

	if raw := strings.TrimSpace(c.PostForm("cut_start")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, failure.Validation("cut_start must be a number")
		}
		req.CutStart = v
	}
	if raw := strings.TrimSpace(c.PostForm("cut_end")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, failure.Validation("cut_end must be a number")
		}
		req.CutEnd = &v
	}
	return req, req.Validate()
}

// List projects endpoint
func (api *API) listProjects(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	projects, err := api.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		api.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get project endpoint
func (api *API) getProject(c *gin.Context) {
	project, err := api.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// Get project status endpoint
func (api *API) getStatus(c *gin.Context) {
	status, err := api.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Delete project endpoint
func (api *API) deleteProject(c *gin.Context) {
	if err := api.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (api *API) triggerStage(stage pipeline.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		status, err := api.svc.Trigger(c.Request.Context(), id, stage)
		if err != nil {
			api.writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"id":     id,
			"stage":  stage,
			"status": status,
		})
	}
}

// Update overlay endpoint
func (api *API) updateOverlay(c *gin.Context) {
	var req overlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.writeError(c, failure.Validation("invalid overlay payload: %v", err))
		return
	}

	status, err := api.svc.UpdateOverlay(c.Request.Context(), c.Param("id"), req.Content, req.Approved)
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Update post endpoint
func (api *API) updatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.writeError(c, failure.Validation("invalid post payload: %v", err))
		return
	}

	status, err := api.svc.UpdatePost(c.Request.Context(), c.Param("id"), req.Content, req.Approved)
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Export listing endpoint
func (api *API) exportListing(c *gin.Context) {
	listing, err := api.svc.ExportListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// writeError maps pipeline errors onto HTTP status codes
func (api *API) writeError(c *gin.Context, err error) {
	var (
		transition  *pipeline.TransitionError
		validation  *failure.ValidationError
		integration *failure.IntegrationFailure
		tooLarge    *http.MaxBytesError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &transition):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrStageRunning):
		status = http.StatusConflict
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &integration):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		api.logger.WithField("path", c.FullPath()).ErrorWithErr("Request failed", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
