package home

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

// Refresh probes every device once and updates its status. Probes run on a
// fixed pool of workers; each worker only writes the status slot of the
// device it probes. Refresh returns after every probe has finished.
//
// A failed probe leaves the device unhealthy for the round and, when errSink
// is not nil, is written to it as one complete record.
func (h *Home) Refresh(errSink io.Writer) {
	if len(h.devices) == 0 {
		return
	}

	var sink *logrus.Logger
	if errSink != nil {
		sink = newSinkLogger(errSink)
	}

	workers := h.workers
	if workers > len(h.devices) {
		workers = len(h.devices)
	}

	jobs := make(chan int, len(h.devices))
	for i := range h.devices {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				h.probeDevice(i, sink)
			}
		}()
	}
	wg.Wait()

	h.logger.WithFields(logrus.Fields{
		"home":    h.name,
		"devices": len(h.devices),
		"workers": workers,
	}).Debug("Refresh complete")
}

func (h *Home) probeDevice(i int, sink *logrus.Logger) {
	device := h.devices[i]
	status := h.statuses[i]

	result, err := h.prober.Probe(device.Address())
	if err == nil {
		status.Update(result)
		return
	}

	status.Reset()

	diagnostic := err.Error()
	var perr *models.ProbeError
	if errors.As(err, &perr) {
		diagnostic = perr.Diagnostic()
	}

	h.logger.WithFields(logrus.Fields{
		"device":  device.String(),
		"address": device.Address(),
		"error":   err,
	}).Debug("Probe failed")

	if sink != nil {
		sink.Errorf("Error while pinging %s (%s): %q", device, device.Address(), diagnostic)
	}
}

// newSinkLogger returns a logger writing failure records to w. The logger
// serializes entries, so concurrent workers never interleave partial records.
func newSinkLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.ErrorLevel)
	logger.SetFormatter(recordFormatter{name: "homemon"})
	return logger
}

// recordFormatter writes "<time> <name>: <LEVEL>: <message>" lines.
type recordFormatter struct {
	name string
}

func (f recordFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("%s %s: %s: %s\n",
		entry.Time.Format("2006-01-02 15:04:05"),
		f.name,
		strings.ToUpper(entry.Level.String()),
		entry.Message)
	return []byte(line), nil
}
