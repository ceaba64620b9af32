// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding"
	"hash"

	"github.com/pkg/errors"
)

// softwareFallback is the default FallbackFactory.
func softwareFallback(name string) (hash.Hash, error) {
	alg, err := ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	switch alg {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	default:
		return sha256.New(), nil
	}
}

// fallback forwards the streaming operations to a software hash bound to
// the same algorithm. It never touches the device.
type fallback struct {
	alg Algorithm
	h   hash.Hash
}

func newFallback(factory FallbackFactory, alg Algorithm) (*fallback, error) {
	h, err := factory(alg.String())
	if err != nil {
		return nil, errors.Wrapf(ErrFallbackSetup, "%s: %v", alg, err)
	}
	if h == nil || h.Size() != alg.Size() {
		return nil, errors.Wrapf(ErrFallbackSetup, "%s: unexpected digest size", alg)
	}
	if _, ok := h.(encoding.BinaryMarshaler); !ok {
		return nil, errors.Wrapf(ErrFallbackSetup, "%s: state cannot be exported", alg)
	}
	if _, ok := h.(encoding.BinaryUnmarshaler); !ok {
		return nil, errors.Wrapf(ErrFallbackSetup, "%s: state cannot be imported", alg)
	}
	return &fallback{alg: alg, h: h}, nil
}

// stateSize returns the length of an exported state blob.
func (f *fallback) stateSize() (int, error) {
	f.h.Reset()
	state, err := f.exportState()
	return len(state), err
}

func (f *fallback) init() error {
	f.h.Reset()
	return nil
}

func (f *fallback) update(src ScatterList) error {
	for _, b := range src {
		if _, err := f.h.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func (f *fallback) final(_ context.Context, out []byte) error {
	size := f.alg.Size()
	if len(out) < size {
		return errors.Wrapf(ErrInvalidArgument, "output buffer %d bytes, need %d", len(out), size)
	}
	copy(out, f.h.Sum(nil))
	return nil
}

func (f *fallback) finup(ctx context.Context, src ScatterList, out []byte) error {
	if err := f.update(src); err != nil {
		return err
	}
	return f.final(ctx, out)
}

func (f *fallback) exportState() ([]byte, error) {
	return f.h.(encoding.BinaryMarshaler).MarshalBinary()
}

func (f *fallback) importState(state []byte) error {
	return f.h.(encoding.BinaryUnmarshaler).UnmarshalBinary(state)
}
