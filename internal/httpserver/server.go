// Package httpserver exposes a small status API for long-running exports,
// so operators can poll progress instead of tailing logs.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Progress tracks the phases of an export run. All methods are safe for
// concurrent use; the collection pipeline updates it as it goes.
type Progress struct {
	mu            sync.RWMutex
	phase         string
	vmsDiscovered int
	vmsExported   int
	duplicates    int
	lastError     string
	startedAt     time.Time
}

// NewProgress returns a tracker in the starting phase.
func NewProgress() *Progress {
	return &Progress{phase: "starting", startedAt: time.Now()}
}

// SetPhase records the pipeline stage currently running.
func (p *Progress) SetPhase(phase string) {
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

// SetCounts records how many VMs the run discovered and kept.
func (p *Progress) SetCounts(discovered, exported, duplicates int) {
	p.mu.Lock()
	p.vmsDiscovered = discovered
	p.vmsExported = exported
	p.duplicates = duplicates
	p.mu.Unlock()
}

// Fail records a terminal error and moves the run to the failed phase.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	p.phase = "failed"
	p.lastError = err.Error()
	p.mu.Unlock()
}

func (p *Progress) snapshot() gin.H {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := gin.H{
		"phase":          p.phase,
		"vms_discovered": p.vmsDiscovered,
		"vms_exported":   p.vmsExported,
		"duplicates":     p.duplicates,
		"elapsed":        time.Since(p.startedAt).Truncate(time.Second).String(),
	}
	if p.lastError != "" {
		h["error"] = p.lastError
	}
	return h
}

// Server provides the HTTP status API.
type Server struct {
	addr     string
	progress *Progress
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a status server reporting the given tracker.
func NewServer(addr string, progress *Progress) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     addr,
		progress: progress,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", s.handleStatus)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.progress.snapshot())
}
