package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sevir/lanzadera/internal/cmdline"
	"github.com/sevir/lanzadera/internal/launcher"
	"github.com/sevir/lanzadera/pkg/models"
)

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.version})
}

func (s *Server) handleList(c *gin.Context) {
	statuses := c.QueryArray("status")
	var filter []models.LaunchStatus
	for _, st := range statuses {
		if st == "" {
			continue
		}
		filter = append(filter, models.LaunchStatus(st))
	}

	records, err := s.registry.List(models.ListRequest{Status: filter})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]models.LaunchSummary, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.ToSummary())
	}
	c.JSON(http.StatusOK, gin.H{"launches": items})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req models.LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	command := req.Command
	if len(command) == 0 {
		parsed, err := cmdline.Parse(req.CommandLine)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		command = parsed
	}

	opts := launcher.Options{
		WorkDir: req.WorkDir,
		Env:     req.Env,
	}
	if req.Label != "" {
		opts.Config = staticConfig{label: req.Label}
	}

	l, err := s.launcher.Launch(c.Request.Context(), command, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, launcher.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if l == nil {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request canceled before launch"})
		return
	}

	c.JSON(http.StatusCreated, l.Record)
}

func (s *Server) handleGet(c *gin.Context) {
	l, err := s.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "launch not found"})
		return
	}
	c.JSON(http.StatusOK, l.Record)
}

func (s *Server) handleOutput(c *gin.Context) {
	l, err := s.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "launch not found"})
		return
	}

	var stdout, stderr string
	if mon := l.Process.OutputMonitor(); mon != nil {
		stdout = mon.Contents()
	}
	if mon := l.Process.ErrorMonitor(); mon != nil {
		stderr = mon.Contents()
	}
	c.JSON(http.StatusOK, gin.H{"stdout": stdout, "stderr": stderr})
}

func (s *Server) handleTerminate(c *gin.Context) {
	if err := s.registry.Terminate(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "terminating"})
}

func (s *Server) handleRemove(c *gin.Context) {
	if err := s.registry.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// staticConfig supplies a fixed display label for API-created launches.
type staticConfig struct {
	label string
}

func (c staticConfig) Attribute(key, def string) (string, error) {
	if key == launcher.AttrProcessLabel && c.label != "" {
		return c.label, nil
	}
	return def, nil
}

func (c staticConfig) ResolveEnvironment() (map[string]string, error) {
	return nil, nil
}
