// Package apitest runs an in-memory todos REST service for tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/idilsaglam/tada/internal/model"
)

// Operation names accepted by Fail and Calls.
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Server is a fake todos API with failure injection.
type Server struct {
	URL string

	srv *httptest.Server

	mu      sync.Mutex
	todos   []model.Todo
	nextID  int
	token   string
	failOps map[string]bool
	failIDs map[string]map[int]bool
	calls   map[string]int
	headers http.Header
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New starts a server seeded with todos. Seeds with ID 0 get fresh ids.
func New(t testing.TB, seed ...model.Todo) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		nextID:  1,
		failOps: map[string]bool{},
		failIDs: map[string]map[int]bool{},
		calls:   map[string]int{},
	}
	for _, td := range seed {
		if td.ID == 0 {
			td.ID = s.nextID
		}
		if td.ID >= s.nextID {
			s.nextID = td.ID + 1
		}
		s.todos = append(s.todos, td)
	}

	r := gin.New()
	r.Use(s.record, s.auth)
	r.GET("/todos", s.list)
	r.POST("/todos", s.create)
	r.PATCH("/todos/:id", s.update)
	r.DELETE("/todos/:id", s.remove)

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// RequireToken rejects requests without "Authorization: Bearer token".
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Fail makes every call of op return 500. With ids, only those todos fail.
func (s *Server) Fail(op string, ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		s.failOps[op] = true
		return
	}
	if s.failIDs[op] == nil {
		s.failIDs[op] = map[int]bool{}
	}
	for _, id := range ids {
		s.failIDs[op][id] = true
	}
}

// Recover clears all injected failures.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOps = map[string]bool{}
	s.failIDs = map[string]map[int]bool{}
}

// Calls counts requests that reached the handler for op.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Todos returns the server-side collection.
func (s *Server) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.todos)
}

// LastHeader returns a header of the most recent request.
func (s *Server) LastHeader(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers.Get(name)
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.headers = c.Request.Header.Clone()
	s.mu.Unlock()
	c.Next()
}

func (s *Server) auth(c *gin.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Code:    "UNAUTHORIZED",
			Message: "missing or invalid token",
		})
		return
	}
	c.Next()
}

// failing counts the call and reports whether it must fail.
func (s *Server) failing(op string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failOps[op] || s.failIDs[op][id]
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, errorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "injected failure",
	})
}

func (s *Server) list(c *gin.Context) {
	if s.failing(OpList, 0) {
		internalError(c)
		return
	}
	userID, err := strconv.Atoi(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_USER_ID", Message: "userId must be a number"})
		return
	}

	s.mu.Lock()
	out := []model.Todo{}
	for _, td := range s.todos {
		if td.UserID == userID {
			out = append(out, td)
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

func (s *Server) create(c *gin.Context) {
	if s.failing(OpCreate, 0) {
		internalError(c)
		return
	}
	var td model.Todo
	if err := c.ShouldBindJSON(&td); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	s.mu.Lock()
	td.ID = s.nextID
	s.nextID++
	s.todos = append(s.todos, td)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, td)
}

func (s *Server) update(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}
	if s.failing(OpUpdate, id) {
		internalError(c)
		return
	}
	var patch model.Todo
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos[i].Title = patch.Title
			s.todos[i].Completed = patch.Completed
			c.JSON(http.StatusOK, s.todos[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, errorResponse{Code: "TODO_NOT_FOUND", Message: "todo not found"})
}

func (s *Server) remove(c *gin.Context) {
	id, ok := todoID(c)
	if !ok {
		return
	}
	if s.failing(OpDelete, id) {
		internalError(c)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, errorResponse{Code: "TODO_NOT_FOUND", Message: "todo not found"})
}

func todoID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_TODO_ID", Message: "id must be a number"})
		return 0, false
	}
	return id, true
}

// Close stops the server early; New already registers it for cleanup.
func (s *Server) Close() { s.srv.Close() }
