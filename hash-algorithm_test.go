// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroMessageTable(t *testing.T) {
	md5Empty := md5.Sum(nil)
	sha1Empty := sha1.Sum(nil)
	sha256Empty := sha256.Sum256(nil)

	assert.Equal(t, md5Empty[:], zeroMessage[MD5])
	assert.Equal(t, sha1Empty[:], zeroMessage[SHA1])
	assert.Equal(t, sha256Empty[:], zeroMessage[SHA256])

	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", hex.EncodeToString(zeroMessage[MD5]))
}

func TestZeroMessageDigest(t *testing.T) {
	for _, alg := range algorithms {
		out := make([]byte, alg.Size())
		require.NoError(t, zeroMessageDigest(alg.Size(), out))
		assert.Equal(t, zeroMessage[alg], out, alg.String())
	}

	err := zeroMessageDigest(24, make([]byte, 32))
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = zeroMessageDigest(SizeSHA256, make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAlgorithmForSize(t *testing.T) {
	for size, want := range map[int]Algorithm{16: MD5, 20: SHA1, 32: SHA256} {
		alg, err := AlgorithmForSize(size)
		require.NoError(t, err)
		assert.Equal(t, want, alg)
		assert.Equal(t, size, alg.Size())
	}
	for _, size := range []int{0, 28, 48, 64} {
		_, err := AlgorithmForSize(size)
		assert.ErrorIs(t, err, ErrInvalidArgument, "size %d", size)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, alg := range algorithms {
		got, err := ParseAlgorithm(alg.String())
		require.NoError(t, err)
		assert.Equal(t, alg, got)
	}
	got, err := ParseAlgorithm("SHA-256")
	require.NoError(t, err)
	assert.Equal(t, SHA256, got)

	_, err = ParseAlgorithm("sha512")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAlgorithmMode(t *testing.T) {
	assert.Equal(t, uint32(hashModeMD5), MD5.mode())
	assert.Equal(t, uint32(hashModeSHA1), SHA1.mode())
	assert.Equal(t, uint32(hashModeSHA256), SHA256.mode())
	assert.Equal(t, 64, SHA1.BlockSize())
	assert.Equal(t, "unknown", Algorithm(0).String())
}
