// Package qos holds time-limited PM QoS requests. A request stays in
// force while its device file is open, so the poker keeps the handle
// and closes it when the duration expires.
package qos

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"codeberg.org/mutker/powerhald/internal/clock"
	"codeberg.org/mutker/powerhald/internal/errors"
	"codeberg.org/mutker/powerhald/internal/logger"
	"codeberg.org/mutker/powerhald/internal/sysfs"
)

// PM QoS request devices, relative to the filesystem root.
const (
	CPUFreqMinPath    = "dev/cpu_freq_min"
	MinOnlineCPUsPath = "dev/min_online_cpus"
)

const ErrQoSRequest = errors.ErrorCode("qos_request_failed")

type request struct {
	handle io.WriteCloser
	value  int32
	expiry time.Time
	timer  *clock.Timer
	gen    uint64
}

// Poker tracks one open request per device.
type Poker struct {
	mu       sync.Mutex
	fs       *sysfs.FS
	clock    clock.Clock
	logger   logger.Logger
	requests map[string]*request
}

func New(fs *sysfs.FS, clk clock.Clock, log logger.Logger) *Poker {
	return &Poker{
		fs:       fs,
		clock:    clk,
		logger:   log,
		requests: make(map[string]*request),
	}
}

// RequestTimed holds value on the device at rel for d. A repeated
// request for the same device rewrites the value if it changed and
// restarts the duration.
func (p *Poker) RequestTimed(rel string, value int32, d time.Duration) error {
	if d <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, d.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests[rel]
	if !ok {
		w, err := p.fs.OpenWriter(rel)
		if err != nil {
			return errors.New().Wrap(ErrQoSRequest, err)
		}
		req = &request{handle: w}
		p.requests[rel] = req
	}

	if !ok || req.value != value {
		buf := make([]byte, 4)
		binary.NativeEndian.PutUint32(buf, uint32(value))
		if _, err := req.handle.Write(buf); err != nil {
			p.releaseLocked(rel, req)
			return errors.New().Wrap(ErrQoSRequest, err)
		}
		req.value = value
	}

	if req.timer != nil {
		req.timer.Stop()
	}
	req.gen++
	gen := req.gen
	req.expiry = p.clock.Now().Add(d)
	req.timer = p.clock.AfterFunc(d, func() {
		p.expire(rel, gen)
	})

	p.logger.Debug().Str("device", rel).Int32("value", value).Dur("duration", d).Msg("PM QoS request")

	return nil
}

func (p *Poker) expire(rel string, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests[rel]
	if !ok || req.gen != gen {
		return
	}

	p.releaseLocked(rel, req)
	p.logger.Debug().Str("device", rel).Msg("PM QoS request expired")
}

func (p *Poker) releaseLocked(rel string, req *request) {
	if req.timer != nil {
		req.timer.Stop()
	}
	if err := req.handle.Close(); err != nil {
		p.logger.Warn().Err(err).Str("device", rel).Msg("Failed to close PM QoS handle")
	}
	delete(p.requests, rel)
}

// Active returns the value held on rel and when it expires.
func (p *Poker) Active(rel string) (int32, time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests[rel]
	if !ok {
		return 0, time.Time{}, false
	}

	return req.value, req.expiry, true
}

// Close drops every outstanding request.
func (p *Poker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for rel, req := range p.requests {
		p.releaseLocked(rel, req)
	}
}
