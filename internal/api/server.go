package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vidbatch/vidbatch/internal/batch"
	"github.com/vidbatch/vidbatch/internal/config"
	"github.com/vidbatch/vidbatch/internal/db"
	"github.com/vidbatch/vidbatch/internal/encoder"
)

type Server struct {
	Router *gin.Engine
	cfg    *config.Config
	conn   *gorm.DB
	mgr    *Manager
}

func NewServer(cfg *config.Config, conn *gorm.DB, mgr *Manager) *Server {
	g := gin.Default()
	s := &Server{Router: g, cfg: cfg, conn: conn, mgr: mgr}

	api := g.Group("/api")
	api.POST("/runs", s.startRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.GET("/runs/:id/logs", s.getRunLogs)
	api.GET("/runs/:id/tasks", s.getRunTasks)
	api.POST("/runs/:id/cancel", s.cancelRun)
	api.GET("/history", s.listHistory)
	api.GET("/stats", s.getStats)
	api.GET("/encoder", s.checkEncoder)

	return s
}

// startRunRequest is the POST /api/runs body. Unset fields fall back to
// the daemon configuration.
type startRunRequest struct {
	SourceDir         string   `json:"source_dir"`
	DestDir           string   `json:"dest_dir"`
	EncoderPath       string   `json:"encoder_path"`
	SourceFormats     []string `json:"source_formats"`
	DestFormat        string   `json:"dest_format"`
	PreserveStructure *bool    `json:"preserve_structure"`
}

func (s *Server) requestFrom(body startRunRequest) batch.Request {
	req := batch.Request{
		SourceDir:         body.SourceDir,
		DestDir:           body.DestDir,
		EncoderPath:       body.EncoderPath,
		SourceExts:        body.SourceFormats,
		DestExt:           body.DestFormat,
		PreserveStructure: s.cfg.PreserveStructure,
	}
	if req.SourceDir == "" {
		req.SourceDir = s.cfg.SourceDir
	}
	if req.DestDir == "" {
		req.DestDir = s.cfg.DestDir
	}
	if req.EncoderPath == "" {
		req.EncoderPath = s.cfg.EncoderPath
	}
	if req.EncoderPath == "" {
		req.EncoderPath = encoder.FindDefault()
	}
	if len(req.SourceExts) == 0 {
		req.SourceExts = s.cfg.SourceFormats
	}
	if req.DestExt == "" {
		req.DestExt = s.cfg.DestFormat
	}
	if body.PreserveStructure != nil {
		req.PreserveStructure = *body.PreserveStructure
	}
	return req
}

func (s *Server) startRun(c *gin.Context) {
	var body startRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	req := s.requestFrom(body)
	if err := os.MkdirAll(req.DestDir, 0755); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.mgr.StartRun(req)
	if errors.Is(err, ErrRunActive) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": id})
}

func (s *Server) listRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.mgr.List()})
}

func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")
	if view, ok := s.mgr.Get(id); ok {
		c.JSON(http.StatusOK, view)
		return
	}
	// Fall back to persisted history for runs from earlier processes.
	rec, err := db.GetRun(s.conn, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) getRunLogs(c *gin.Context) {
	id := c.Param("id")
	if lines, ok := s.mgr.Logs(id); ok {
		c.JSON(http.StatusOK, gin.H{"lines": lines})
		return
	}
	rec, err := db.GetRun(s.conn, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": rec.Log})
}

func (s *Server) getRunTasks(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 200)
	tasks, err := db.ListTasks(s.conn, c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (s *Server) cancelRun(c *gin.Context) {
	if err := s.mgr.Cancel(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelling": true})
}

func (s *Server) listHistory(c *gin.Context) {
	limit := parseIntDefault(c.Query("limit"), 50)
	runs, err := db.ListRuns(s.conn, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := db.GetStats(s.conn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) checkEncoder(c *gin.Context) {
	bin := c.Query("path")
	if bin == "" {
		bin = s.cfg.EncoderPath
	}
	if bin == "" {
		bin = encoder.FindDefault()
	}
	version, err := encoder.Check(bin)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"path": bin, "ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": bin, "ok": true, "version": version})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
