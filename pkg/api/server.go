// Package api serves a read-only JSON view of the latest poll round.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/homemon/pkg/home"
	"github.com/ExclusiveAccount/homemon/pkg/models"
	"github.com/ExclusiveAccount/homemon/pkg/monitor"
	"github.com/ExclusiveAccount/homemon/pkg/statuslog"
)

// DeviceView is one device as reported by the API
type DeviceView struct {
	Label     string              `json:"label"`
	Device    models.DeviceSpec   `json:"device"`
	Healthy   bool                `json:"healthy"`
	CheckedAt *time.Time          `json:"checked_at,omitempty"`
	LastProbe *models.ProbeResult `json:"last_probe,omitempty"`
}

// Snapshot is the state of the home after the last round
type Snapshot struct {
	Home    string       `json:"home"`
	Round   int          `json:"round"`
	Time    time.Time    `json:"time"`
	Up      int          `json:"up"`
	Down    int          `json:"down"`
	Row     string       `json:"row"`
	Devices []DeviceView `json:"devices"`
}

// Board keeps the latest round and serves it over HTTP
type Board struct {
	router *gin.Engine
	logger *logrus.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewBoard creates the dashboard server
func NewBoard(logger *logrus.Logger) *Board {
	if logger == nil {
		logger = logrus.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	b := &Board{
		router: router,
		logger: logger,
	}
	b.setupRoutes()

	return b
}

func (b *Board) setupRoutes() {
	b.router.GET("/healthz", b.handleHealth)

	api := b.router.Group("/api")
	{
		api.GET("/status", b.handleStatus)
		api.GET("/devices", b.handleDevices)
		api.GET("/devices/:label", b.handleDevice)
	}
}

// Handler exposes the router, mostly for tests
func (b *Board) Handler() http.Handler {
	return b.router
}

// Start serves the board on addr until the listener fails
func (b *Board) Start(addr string) error {
	b.logger.WithField("addr", addr).Info("Dashboard listening")
	return b.router.Run(addr)
}

// Publish implements monitor.Observer. It runs on the monitor goroutine after
// the refresh has finished, so reading the home here is race free.
func (b *Board) Publish(h *home.Home, round monitor.Round) {
	devices := h.Devices()
	statuses := h.Statuses()

	snap := &Snapshot{
		Home:    h.Name(),
		Time:    round.Time,
		Row:     round.Row,
		Devices: make([]DeviceView, len(devices)),
	}

	for i, d := range devices {
		view := DeviceView{
			Label:   statuslog.Label(i),
			Device:  d.Spec(),
			Healthy: statuses[i].Healthy(),
		}
		if at := statuses[i].CheckedAt(); !at.IsZero() {
			view.CheckedAt = &at
		}
		if r, ok := statuses[i].LastProbe(); ok {
			view.LastProbe = &r
		}
		if view.Healthy {
			snap.Up++
		} else {
			snap.Down++
		}
		snap.Devices[i] = view
	}

	b.mu.Lock()
	if b.snapshot != nil {
		snap.Round = b.snapshot.Round
	}
	snap.Round++
	b.snapshot = snap
	b.mu.Unlock()
}

// Snapshot returns the latest snapshot, nil before the first round
func (b *Board) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

func (b *Board) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (b *Board) handleStatus(c *gin.Context) {
	snap := b.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no round recorded yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (b *Board) handleDevices(c *gin.Context) {
	snap := b.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no round recorded yet"})
		return
	}
	c.JSON(http.StatusOK, snap.Devices)
}

func (b *Board) handleDevice(c *gin.Context) {
	snap := b.Snapshot()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no round recorded yet"})
		return
	}

	label := c.Param("label")
	for _, d := range snap.Devices {
		if d.Label == label {
			c.JSON(http.StatusOK, d)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
}
