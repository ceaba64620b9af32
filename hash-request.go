// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
)

// AlgorithmInfo describes an algorithm offered by an Engine.
type AlgorithmInfo struct {
	Name       string
	Driver     string
	DigestSize int
	BlockSize  int
	StateSize  int // size of an exported request state
}

// Algorithms lists the algorithms the engine offers. Algorithms whose
// software fallback could not be set up are left out.
func (e *Engine) Algorithms() []AlgorithmInfo {
	infos := make([]AlgorithmInfo, 0, len(e.offered))
	for _, alg := range algorithms {
		size, ok := e.offered[alg]
		if !ok {
			continue
		}
		infos = append(infos, AlgorithmInfo{
			Name:       alg.String(),
			Driver:     "hwhash-" + alg.String(),
			DigestSize: alg.Size(),
			BlockSize:  alg.BlockSize(),
			StateSize:  size,
		})
	}
	return infos
}

// Transform binds one algorithm to an Engine. Requests are created from it.
type Transform struct {
	eng       *Engine
	alg       Algorithm
	stateSize int
	closed    atomic.Bool
}

// NewTransform binds the algorithm registered under name. Release it with
// Close.
func (e *Engine) NewTransform(name string) (*Transform, error) {
	alg, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	size, ok := e.offered[alg]
	if !ok {
		return nil, errors.WithStack(e.setupErr[alg])
	}
	e.stats.transforms.Add(1)
	return &Transform{eng: e, alg: alg, stateSize: size}, nil
}

// Close releases the transform.
func (t *Transform) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.eng.stats.transforms.Add(-1)
	}
	return nil
}

// Algorithm returns the bound algorithm.
func (t *Transform) Algorithm() Algorithm { return t.alg }

// Size returns the digest size.
func (t *Transform) Size() int { return t.alg.Size() }

// BlockSize returns the block size.
func (t *Transform) BlockSize() int { return t.alg.BlockSize() }

// StateSize returns the size of an exported request state.
func (t *Transform) StateSize() int { return t.stateSize }

// NewRequest allocates a request together with its software sub-request.
func (t *Transform) NewRequest() (*Request, error) {
	if t.closed.Load() {
		return nil, errors.Wrap(ErrClosed, "transform released")
	}
	fb, err := newFallback(t.eng.cfg.Fallback, t.alg)
	if err != nil {
		return nil, err
	}
	return &Request{t: t, fb: fb}, nil
}

// Digest computes the digest of src into out.
func (t *Transform) Digest(ctx context.Context, src ScatterList, out []byte) error {
	r, err := t.NewRequest()
	if err != nil {
		return err
	}
	return r.Digest(ctx, src, out)
}

// path is one way of running a request. Both variants present the same
// streaming operations.
type path interface {
	init() error
	update(src ScatterList) error
	final(ctx context.Context, out []byte) error
	finup(ctx context.Context, src ScatterList, out []byte) error
	exportState() ([]byte, error)
	importState(state []byte) error
}

// hardwarePath collects the scatter list of a request and digests it on
// the device in one go. The buffers are referenced, not copied, until
// the request is finalised.
type hardwarePath struct {
	r   *Request
	src ScatterList
}

func (h *hardwarePath) init() error {
	h.src = h.src[:0]
	return nil
}

func (h *hardwarePath) update(src ScatterList) error {
	h.src = append(h.src, src...)
	return nil
}

func (h *hardwarePath) final(ctx context.Context, out []byte) error {
	eng := h.r.t.eng
	err := eng.digest(ctx, h.r.t.alg, h.src, h.src.Len(), out)
	if errors.Is(err, ErrClosed) {
		// The device went away; finish in software.
		if err = h.migrate(); err != nil {
			return err
		}
		eng.stats.fallback.Add(1)
		return h.r.fb.final(ctx, out)
	}
	return err
}

func (h *hardwarePath) finup(ctx context.Context, src ScatterList, out []byte) error {
	if err := h.update(src); err != nil {
		return err
	}
	return h.final(ctx, out)
}

// exportState needs hashing state, which only the software path has.
func (h *hardwarePath) exportState() ([]byte, error) {
	if err := h.migrate(); err != nil {
		return nil, err
	}
	return h.r.fb.exportState()
}

func (h *hardwarePath) importState(state []byte) error {
	h.r.path = h.r.fb
	return h.r.fb.importState(state)
}

// migrate replays the collected input into the software sub-request and
// switches the request over to it.
func (h *hardwarePath) migrate() error {
	fb := h.r.fb
	if err := fb.init(); err != nil {
		return err
	}
	if err := fb.update(h.src); err != nil {
		return err
	}
	h.r.path = fb
	h.src = nil
	return nil
}

// Request is the per-operation context of a Transform. A Request is not
// safe for concurrent use.
type Request struct {
	t    *Transform
	fb   *fallback // owned software sub-request
	hw   hardwarePath
	path path
}

// selectPath picks the hardware path when the device is usable and the
// software path otherwise.
func (r *Request) selectPath() {
	if r.t.eng.hardware() {
		r.hw = hardwarePath{r: r}
		r.path = &r.hw
		return
	}
	r.path = r.fb
}

func (r *Request) active() (path, error) {
	if r.path == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "request not initialised")
	}
	return r.path, nil
}

// Init starts a new message.
func (r *Request) Init() error {
	r.selectPath()
	return r.path.init()
}

// Update adds src to the message. On the hardware path the buffers must
// stay unmodified until Final or Finup returns.
func (r *Request) Update(src ScatterList) error {
	p, err := r.active()
	if err != nil {
		return err
	}
	return p.update(src)
}

// Final writes the digest of the message into out.
func (r *Request) Final(ctx context.Context, out []byte) error {
	p, err := r.active()
	if err != nil {
		return err
	}
	return p.final(ctx, out)
}

// Finup adds src to the message and writes the digest into out.
func (r *Request) Finup(ctx context.Context, src ScatterList, out []byte) error {
	p, err := r.active()
	if err != nil {
		return err
	}
	return p.finup(ctx, src, out)
}

// Digest computes the digest of src into out, discarding earlier state.
func (r *Request) Digest(ctx context.Context, src ScatterList, out []byte) error {
	return r.DigestN(ctx, src, src.Len(), out)
}

// DigestN computes the digest of the first n bytes of src into out,
// discarding earlier state. An empty message is answered from a table of
// known digests. If src holds fewer than n bytes ErrInsufficientData is
// returned.
func (r *Request) DigestN(ctx context.Context, src ScatterList, n int, out []byte) error {
	eng := r.t.eng
	if n < 0 {
		return errors.Wrapf(ErrInvalidArgument, "message length %d", n)
	}
	if n == 0 {
		size := r.t.Size()
		if len(out) < size {
			return errors.Wrapf(ErrInvalidArgument, "output buffer %d bytes, need %d", len(out), size)
		}
		eng.stats.zeroMessage.Add(1)
		return zeroMessageDigest(size, out)
	}
	if err := r.Init(); err != nil {
		return err
	}
	if r.path == &r.hw {
		err := eng.digest(ctx, r.t.alg, src, n, out)
		if !errors.Is(err, ErrClosed) {
			return err
		}
		// The device went away after the path was chosen.
		r.path = r.fb
	}

	if n > src.Len() {
		return errors.Wrapf(ErrInsufficientData, "%d of %d bytes available", src.Len(), n)
	}
	eng.stats.fallback.Add(1)
	if err := r.fb.init(); err != nil {
		return err
	}
	return r.fb.finup(ctx, src.limit(n), out)
}

// Export returns the hashing state of the request. The state is that of
// the software sub-request; a request on the hardware path moves over to
// it.
func (r *Request) Export() ([]byte, error) {
	p, err := r.active()
	if err != nil {
		return nil, err
	}
	return p.exportState()
}

// Import restores a state returned by Export. The request continues on
// the software path.
func (r *Request) Import(state []byte) error {
	if r.path == nil {
		r.path = r.fb
	}
	return r.path.importState(state)
}
