// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// job is one hardware digest waiting for or occupying the engine.
type job struct {
	id    uint64
	ctx   context.Context
	size  int // requested digest size
	src   ScatterList
	total int
	out   []byte
	done  chan error // receives exactly one result
}

// Engine drives one hashing accelerator. Requests are queued and run one
// at a time; a single goroutine owns the device and the session state.
type Engine struct {
	dev Device
	cfg Config
	log *zap.Logger

	uidCounter uint64

	// offered holds the state size per algorithm with a working fallback;
	// setupErr holds the reason for those without.
	offered  map[Algorithm]int
	setupErr map[Algorithm]error

	mu     sync.RWMutex
	closed bool

	jobs         chan *job
	events       chan irqEvent
	quit         chan struct{}
	stopIRQ      chan struct{}
	dispatchDone chan struct{}
	irqDone      chan struct{}
	closeOnce    sync.Once

	armed atomic.Uint64 // id of the job whose burst is in flight
	sess  session
	stats stats
}

// NewEngine returns an engine bound to dev. A nil dev yields an engine
// that computes every digest in software.
func NewEngine(dev Device, opts ...Option) (*Engine, error) {
	e, err := newEngine(dev, opts...)
	if err != nil {
		return nil, err
	}
	e.start()
	return e, nil
}

func newEngine(dev Device, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		dev:          dev,
		cfg:          cfg,
		log:          cfg.Logger.Named("hwhash"),
		offered:      make(map[Algorithm]int),
		setupErr:     make(map[Algorithm]error),
		jobs:         make(chan *job, cfg.QueueDepth),
		events:       make(chan irqEvent, 1),
		quit:         make(chan struct{}),
		stopIRQ:      make(chan struct{}),
		dispatchDone: make(chan struct{}),
		irqDone:      make(chan struct{}),
		sess:         newSession(cfg.StagingSize),
	}

	for _, alg := range algorithms {
		fb, err := newFallback(cfg.Fallback, alg)
		var size int
		if err == nil {
			size, err = fb.stateSize()
		}
		if err != nil {
			e.log.Error("could not load fallback driver", zap.Stringer("alg", alg), zap.Error(err))
			e.setupErr[alg] = err
			continue
		}
		e.offered[alg] = size
	}
	e.log.Info("engine registered",
		zap.Bool("hardware", dev != nil),
		zap.Int("algorithms", len(e.offered)),
		zap.Int("staging", cfg.StagingSize))
	return e, nil
}

func (e *Engine) start() {
	if e.dev == nil {
		close(e.dispatchDone)
		close(e.irqDone)
		return
	}
	go e.process()
	go e.irqLoop()
}

// Close stops the engine. The request in flight is run to completion;
// queued requests fail with ErrClosed.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		close(e.quit)
		<-e.dispatchDone
		close(e.stopIRQ)
		<-e.irqDone
	})
	return nil
}

// hardware reports whether digests can be run on the device.
func (e *Engine) hardware() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dev != nil && !e.closed
}

// digest runs a one-shot digest of the first total bytes of src on the
// device.
func (e *Engine) digest(ctx context.Context, alg Algorithm, src ScatterList, total int, out []byte) error {
	size := alg.Size()
	if len(out) < size {
		return errors.Wrapf(ErrInvalidArgument, "output buffer %d bytes, need %d", len(out), size)
	}
	if total < 0 {
		return errors.Wrapf(ErrInvalidArgument, "message length %d", total)
	}
	if total == 0 {
		e.stats.zeroMessage.Add(1)
		return zeroMessageDigest(size, out)
	}
	if uint64(total) > math.MaxUint32 {
		return errors.Wrapf(ErrInvalidArgument, "message length %d", total)
	}
	j := &job{
		id:    atomic.AddUint64(&e.uidCounter, 1),
		ctx:   ctx,
		size:  size,
		src:   src,
		total: total,
		out:   out,
		done:  make(chan error, 1),
	}
	return e.submit(ctx, j)
}

// submit queues j and waits for its result. Once queued, the job is
// waited for even if ctx ends, since the dispatcher may own out.
func (e *Engine) submit(ctx context.Context, j *job) error {
	e.mu.RLock()
	if e.closed || e.dev == nil {
		e.mu.RUnlock()
		return ErrClosed
	}
	select {
	case e.jobs <- j:
	case <-ctx.Done():
		e.mu.RUnlock()
		return ctx.Err()
	}
	e.mu.RUnlock()
	return <-j.done
}

// process is the sole owner of the session. While idle it waits for the
// next job; while a burst is in flight it waits for its interrupt. Once
// quit is closed no further job is admitted.
func (e *Engine) process() {
	defer close(e.dispatchDone)
	for {
		if e.sess.job == nil {
			select {
			case <-e.quit:
				e.drain()
				return
			default:
			}
			select {
			case j := <-e.jobs:
				if err := e.admit(j); err != nil {
					j.done <- err
				}
			case <-e.quit:
				e.drain()
				return
			}
			continue
		}

		select {
		case ev := <-e.events:
			e.handleIRQ(ev)
		case <-e.sess.deadline:
			e.burstTimeout()
		}
	}
}

// burstTimeout faults the active request after its interrupt failed to
// arrive. Status bits and events left over from the lost burst are
// discarded so they cannot complete the next request's burst.
func (e *Engine) burstTimeout() {
	e.log.Warn("burst interrupt timed out", zap.Uint64("id", e.sess.job.id))
	e.stats.timeouts.Add(1)
	e.fault(errors.Wrapf(ErrHardwareTimeout, "no interrupt within %v", e.cfg.BurstTimeout))

	e.dev.Write(regIntSts, e.dev.Read(regIntSts))
	for {
		select {
		case ev := <-e.events:
			e.log.Debug("discard interrupt", zap.Uint64("id", ev.id), zap.Uint32("status", ev.status))
		default:
			return
		}
	}
}

// drain fails every queued job.
func (e *Engine) drain() {
	for {
		select {
		case j := <-e.jobs:
			j.done <- ErrClosed
		default:
			return
		}
	}
}

// admit makes j the active request, programs the core and starts the
// first burst. An error is returned only when j was not admitted; later
// failures are delivered on j.done.
func (e *Engine) admit(j *job) error {
	s := &e.sess
	if s.job != nil {
		return ErrEngineBusy
	}
	if err := j.ctx.Err(); err != nil {
		return err
	}
	alg, err := AlgorithmForSize(j.size)
	if err != nil {
		return err
	}

	s.begin(j)
	e.stats.requests.Add(1)
	e.log.Debug("admit", zap.Uint64("id", j.id), zap.Stringer("alg", alg), zap.Int("len", j.total))

	resetAndConfigure(e.dev, alg.mode(), j.total)
	e.launch()
	return nil
}

// launch stages the next chunk and starts its burst, retrying while the
// device reports busy.
func (e *Engine) launch() {
	s := &e.sess
	var err error
	for try := 0; ; try++ {
		err = s.stage(e.dev)
		if !errors.Is(err, ErrTransientBusy) || try >= e.cfg.BusyRetries {
			break
		}
		e.stats.busyRetries.Add(1)
		time.Sleep(e.cfg.BusyBackoff)
	}
	if err != nil {
		e.fault(err)
		return
	}

	s.state = stateBurst
	e.armed.Store(s.job.id)
	e.stats.bursts.Add(1)
	e.log.Debug("burst", zap.Uint64("id", s.job.id), zap.Int("count", s.count), zap.Int("left", s.left))
	startDMA(e.dev, s.addr, s.count)
	s.deadline = time.After(e.cfg.BurstTimeout)
}

// onBurstComplete runs after an error free burst.
func (e *Engine) onBurstComplete() {
	s := &e.sess
	s.unload(e.dev)

	if s.left > 0 {
		if err := s.advance(); err != nil {
			e.log.Warn("lack of data", zap.Uint64("id", s.job.id), zap.Int("left", s.left))
			e.fault(err)
			return
		}
		e.launch()
		return
	}

	if err := e.settle(); err != nil {
		e.log.Warn("hash core did not settle", zap.Uint64("id", s.job.id))
		e.stats.timeouts.Add(1)
		e.fault(err)
		return
	}
	var sum [MaxSize]byte
	readDigest(e.dev, sum[:s.job.size])
	copy(s.job.out, sum[:s.job.size])
	s.state = stateDone
	e.stats.completed.Add(1)
	e.finish(nil)
}

// fault aborts the active request with err and leaves the core flushed.
func (e *Engine) fault(err error) {
	s := &e.sess
	s.state = stateFaulted
	s.unload(e.dev)
	flushHash(e.dev)
	e.stats.faults.Add(1)
	e.finish(err)
}

// finish delivers the result of the active request and frees the engine
// for the next one.
func (e *Engine) finish(err error) {
	e.armed.Store(0)
	j := e.sess.end()
	j.done <- err
}
