// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestMany(t *testing.T) {
	e, dev := newTestEngine(t, WithBatchConcurrency(4), WithStagingSize(512))
	tr := newTransform(t, e, "md5")

	rng := rand.New(rand.NewSource(0xabad1dea))
	msgs := make([][]byte, 50)
	srcs := make([]ScatterList, len(msgs))
	for i := range msgs {
		msgs[i] = make([]byte, rng.Intn(5000))
		rng.Read(msgs[i])
		srcs[i] = randomScatter(rng, msgs[i])
	}

	sums, err := tr.DigestMany(context.Background(), srcs)
	require.NoError(t, err)
	require.Len(t, sums, len(msgs))
	for i := range msgs {
		assert.Equal(t, refSum(MD5, msgs[i]), sums[i], "message %d", i)
	}
	assert.Zero(t, dev.Interleaved())
}

func TestDigestManyEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	tr := newTransform(t, e, "sha256")
	sums, err := tr.DigestMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestDigestManyCanceled(t *testing.T) {
	e, _ := newTestEngine(t)
	tr := newTransform(t, e, "sha1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srcs := []ScatterList{{[]byte("abc")}, {[]byte("abcd")}}
	_, err := tr.DigestMany(ctx, srcs)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "message 0")
}

func TestDigestManyFault(t *testing.T) {
	e, dev := newTestEngine(t, WithBatchConcurrency(1))
	tr := newTransform(t, e, "sha256")

	// Requests run strictly in order with a single slot.
	dev.FailBurst(2)
	srcs := []ScatterList{{[]byte("one")}, {[]byte("two")}, {[]byte("three")}}
	sums, err := tr.DigestMany(context.Background(), srcs)
	require.ErrorIs(t, err, ErrDMAFault)
	assert.Contains(t, err.Error(), "message 1")
	assert.Equal(t, refSum(SHA256, []byte("one")), sums[0])
	assert.Nil(t, sums[1])
	assert.Equal(t, refSum(SHA256, []byte("three")), sums[2])
}
