// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"strings"

	"github.com/pkg/errors"
)

// BlockSize is the block size shared by all supported algorithms.
const BlockSize = 64

// MaxSize is the largest digest size produced by the engine.
const MaxSize = 32

// Digest sizes of the supported algorithms.
const (
	SizeMD5    = 16
	SizeSHA1   = 20
	SizeSHA256 = 32
)

// Algorithm identifies a hash algorithm the engine can run.
type Algorithm int

// Supported algorithms.
const (
	MD5 Algorithm = iota + 1
	SHA1
	SHA256
)

var algorithms = []Algorithm{MD5, SHA1, SHA256}

// Precomputed digests of the empty message. The hardware cannot run a
// zero-length burst, so these are returned directly.
var zeroMessage = map[Algorithm][]byte{
	MD5: {
		0xd4, 0x1d, 0x8c, 0xd9, 0x8f, 0x00, 0xb2, 0x04,
		0xe9, 0x80, 0x09, 0x98, 0xec, 0xf8, 0x42, 0x7e,
	},
	SHA1: {
		0xda, 0x39, 0xa3, 0xee, 0x5e, 0x6b, 0x4b, 0x0d,
		0x32, 0x55, 0xbf, 0xef, 0x95, 0x60, 0x18, 0x90,
		0xaf, 0xd8, 0x07, 0x09,
	},
	SHA256: {
		0xe3, 0xb0, 0xc4, 0x42, 0x98, 0xfc, 0x1c, 0x14,
		0x9a, 0xfb, 0xf4, 0xc8, 0x99, 0x6f, 0xb9, 0x24,
		0x27, 0xae, 0x41, 0xe4, 0x64, 0x9b, 0x93, 0x4c,
		0xa4, 0x95, 0x99, 0x1b, 0x78, 0x52, 0xb8, 0x55,
	},
}

// AlgorithmForSize maps a digest size onto the algorithm producing it.
func AlgorithmForSize(size int) (Algorithm, error) {
	switch size {
	case SizeMD5:
		return MD5, nil
	case SizeSHA1:
		return SHA1, nil
	case SizeSHA256:
		return SHA256, nil
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "digest size %d", size)
}

// ParseAlgorithm returns the algorithm registered under name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "md5":
		return MD5, nil
	case "sha1", "sha-1":
		return SHA1, nil
	case "sha256", "sha-256":
		return SHA256, nil
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "algorithm %q", name)
}

// Size returns the digest size in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return SizeMD5
	case SHA1:
		return SizeSHA1
	case SHA256:
		return SizeSHA256
	}
	return 0
}

// BlockSize returns the input block size.
func (a Algorithm) BlockSize() int { return BlockSize }

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	}
	return "unknown"
}

// mode returns the HASH_CTRL algorithm selector.
func (a Algorithm) mode() uint32 {
	switch a {
	case SHA1:
		return hashModeSHA1
	case MD5:
		return hashModeMD5
	}
	return hashModeSHA256
}

// zeroMessageDigest copies the empty-message digest for size into out.
func zeroMessageDigest(size int, out []byte) error {
	alg, err := AlgorithmForSize(size)
	if err != nil {
		return err
	}
	if len(out) < size {
		return errors.Wrapf(ErrInvalidArgument, "output buffer %d bytes, need %d", len(out), size)
	}
	copy(out, zeroMessage[alg])
	return nil
}
