// Package home holds the registry of monitored devices and runs probe rounds
// across them.
package home

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/homemon/pkg/models"
	"github.com/ExclusiveAccount/homemon/pkg/probe"
)

// Home is the registry of monitored devices, one DeviceStatus per Device.
// Membership and order are fixed at construction.
type Home struct {
	name     string
	devices  []models.Device
	statuses []*models.DeviceStatus
	index    map[models.Device]int
	prober   probe.Prober
	workers  int
	logger   *logrus.Logger
}

// Option configures a Home.
type Option func(*Home)

// WithWorkers bounds the number of concurrent probes per round.
func WithWorkers(n int) Option {
	return func(h *Home) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithLogger sets the process logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(h *Home) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New builds the registry. Devices keep their first-seen order; a device equal
// to an earlier one collapses into it.
func New(name string, devices []models.Device, prober probe.Prober, opts ...Option) *Home {
	h := &Home{
		name:    name,
		index:   make(map[models.Device]int, len(devices)),
		prober:  prober,
		workers: runtime.NumCPU(),
		logger:  logrus.New(),
	}

	for _, opt := range opts {
		opt(h)
	}

	for _, d := range devices {
		if _, dup := h.index[d]; dup {
			h.logger.WithField("device", d.String()).Debug("Duplicate device collapsed")
			continue
		}
		h.index[d] = len(h.devices)
		h.devices = append(h.devices, d)
		h.statuses = append(h.statuses, &models.DeviceStatus{})
	}

	return h
}

// Name returns the registry name
func (h *Home) Name() string { return h.name }

// Len returns the number of unique devices
func (h *Home) Len() int { return len(h.devices) }

// Workers returns the probe pool size
func (h *Home) Workers() int { return h.workers }

// Devices returns the devices in registry order.
func (h *Home) Devices() []models.Device {
	out := make([]models.Device, len(h.devices))
	copy(out, h.devices)
	return out
}

// Status returns a copy of the status of d.
func (h *Home) Status(d models.Device) (models.DeviceStatus, bool) {
	i, ok := h.index[d]
	if !ok {
		return models.DeviceStatus{}, false
	}
	return *h.statuses[i], true
}

// Statuses returns copies of all statuses in registry order.
// It must not be called while Refresh is running.
func (h *Home) Statuses() []models.DeviceStatus {
	out := make([]models.DeviceStatus, len(h.statuses))
	for i, s := range h.statuses {
		out[i] = *s
	}
	return out
}

// Healthy returns the health of every device in registry order.
func (h *Home) Healthy() []bool {
	out := make([]bool, len(h.statuses))
	for i, s := range h.statuses {
		out[i] = s.Healthy()
	}
	return out
}
