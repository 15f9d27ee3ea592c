package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"daily-planner/internal/model"
	"daily-planner/internal/repository"
	"daily-planner/internal/service"
	"daily-planner/internal/view"
)

// OwnerHeader carries the id of the authenticated owner. Authentication itself
// happens in front of this server.
const OwnerHeader = "X-Owner-ID"

const ownerKey = "owner"

// Tasks is the task service used by the handlers.
type Tasks interface {
	CreateTask(ctx context.Context, owner uint, input service.TaskInput) (*model.Task, error)
	BulkCreate(ctx context.Context, owner uint, input service.BulkInput) ([]model.Task, error)
	GetTask(ctx context.Context, owner, taskID uint) (*model.Task, error)
	UpdateTask(ctx context.Context, owner, taskID uint, updates ...model.Update) (*model.Task, error)
	Reorder(ctx context.Context, owner uint, items []model.PositionUpdate) error
	DeleteTask(ctx context.Context, owner, taskID uint) error
	View(ctx context.Context, owner uint, v view.View) (*service.ViewResult, error)
}

// Owners resolves owner ids.
type Owners interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

// Server is the task HTTP API.
type Server struct {
	tasks  Tasks
	owners Owners
	router *gin.Engine
}

// NewServer creates the API server and registers its routes.
func NewServer(tasks Tasks, owners Owners) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		tasks:  tasks,
		owners: owners,
		router: router,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api", s.requireOwner)
	{
		api.GET("/tasks", s.handleView)
		api.POST("/tasks", s.handleCreate)
		api.POST("/tasks/bulk", s.handleBulkCreate)
		api.PUT("/tasks/reorder", s.handleReorder)
		api.GET("/tasks/:id", s.handleGet)
		api.PATCH("/tasks/:id", s.handleUpdate)
		api.DELETE("/tasks/:id", s.handleDelete)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] api listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requireOwner(c *gin.Context) {
	raw := strings.TrimSpace(c.GetHeader(OwnerHeader))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing or malformed " + OwnerHeader})
		return
	}
	if _, err := s.owners.FindByID(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrUnknownUser) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown owner"})
			return
		}
		log.Printf("resolve owner %d: %v", id, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.Set(ownerKey, uint(id))
	c.Next()
}

func owner(c *gin.Context) uint {
	return c.GetUint(ownerKey)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleView(c *gin.Context) {
	v := view.Parse(c.Query("view"))
	res, err := s.tasks.View(c.Request.Context(), owner(c), v)
	if err != nil {
		writeError(c, err)
		return
	}

	out := ViewResponse{
		View:  res.View,
		Today: res.Today.Format("2006-01-02"),
		Tasks: taskDTOs(res.Tasks),
	}
	for _, g := range res.Groups {
		out.Groups = append(out.Groups, GroupDTO{Bucket: g.Bucket, Tasks: taskDTOs(g.Tasks)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreate(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, model.Invalid("", "malformed body: %v", err))
		return
	}
	due, err := parseOptionalDate(req.DueDate)
	if err != nil {
		writeError(c, err)
		return
	}
	input := service.TaskInput{Title: req.Title, DueDate: due}
	if req.Status != nil {
		input.Status = model.Status(*req.Status)
		if !input.Status.Valid() {
			writeError(c, model.Invalid("status", "unknown status %q", *req.Status))
			return
		}
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), owner(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewTaskDTO(*task))
}

func (s *Server) handleBulkCreate(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, model.Invalid("", "malformed body: %v", err))
		return
	}
	fallback, err := parseOptionalDate(req.DefaultDueDate)
	if err != nil {
		writeError(c, err)
		return
	}

	input := service.BulkInput{DefaultDueDate: fallback}
	for i, line := range req.Lines {
		due, err := parseOptionalDate(line.DueDate)
		if err != nil {
			field := "lines[" + strconv.Itoa(i) + "].dueDate"
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				err = &model.ValidationError{Field: field, Message: verr.Message}
			}
			writeError(c, err)
			return
		}
		input.Lines = append(input.Lines, service.LineInput{Title: line.Title, DueDate: due})
	}
	if req.Text != "" {
		input.Lines = append(input.Lines, service.SplitLines(req.Text)...)
	}

	tasks, err := s.tasks.BulkCreate(c.Request.Context(), owner(c), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, BulkResponse{Tasks: taskDTOs(tasks)})
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	task, err := s.tasks.GetTask(c.Request.Context(), owner(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTaskDTO(*task))
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, model.Invalid("", "unreadable body"))
		return
	}
	updates, err := DecodePatch(body)
	if err != nil {
		writeError(c, err)
		return
	}
	task, err := s.tasks.UpdateTask(c.Request.Context(), owner(c), id, updates...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTaskDTO(*task))
}

func (s *Server) handleReorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, model.Invalid("items", "malformed reorder payload: %v", err))
		return
	}
	if err := s.tasks.Reorder(c.Request.Context(), owner(c), req.Items); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	if err := s.tasks.DeleteTask(c.Request.Context(), owner(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(c, model.Invalid("id", "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func writeError(c *gin.Context, err error) {
	var verr *model.ValidationError
	var txErr *model.TransactionError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: model.ErrNotFound.Error()})
	case errors.As(err, &txErr):
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "transaction failed, nothing was changed"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
