package strategy

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/exascience/countbench/accel"
)

// ErrHandleClosed is returned by Acquire after Close.
var ErrHandleClosed = errors.New("device handle closed")

// A DeviceHandle is the single owner of an accelerator service. The
// service is opened and initialized on the first Acquire and shut down
// by Close. An initialization failure is reported once and then
// returned by every later Acquire without trying again.
type DeviceHandle struct {
	backend string
	opts    accel.Options
	log     *zap.Logger

	mu       sync.Mutex
	svc      accel.Service
	err      error
	acquired bool
	closed   bool
}

// NewDeviceHandle returns a handle for the named accel backend.
func NewDeviceHandle(backend string, opts accel.Options, log *zap.Logger) *DeviceHandle {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = log
	}
	return &DeviceHandle{backend: backend, opts: opts, log: log}
}

// Acquire returns the initialized service.
func (h *DeviceHandle) Acquire(ctx context.Context) (accel.Service, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.acquired {
		return h.svc, h.err
	}
	svc, err := accel.Open(h.backend, h.opts)
	if err == nil {
		if err = svc.Initialize(ctx); err != nil {
			_ = svc.Shutdown()
		}
	}
	if err != nil && ctx.Err() != nil {
		// cancelled, not a device failure; try again next time
		return nil, err
	}
	h.acquired = true
	if err != nil {
		h.err = err
		h.log.Error("accelerator unavailable, device strategy disabled",
			zap.String("backend", h.backend), zap.Error(err))
		return nil, err
	}
	h.svc = svc
	h.log.Debug("accelerator acquired", zap.String("backend", h.backend))
	return svc, nil
}

// Close shuts the service down if it was initialized. Later calls to
// Acquire fail with ErrHandleClosed.
func (h *DeviceHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.svc == nil {
		return nil
	}
	err := h.svc.Shutdown()
	h.svc = nil
	return err
}
