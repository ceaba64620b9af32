// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simBurst runs data through the device as a single burst.
func simBurst(t *testing.T, d *SimDevice, data []byte) {
	t.Helper()
	addr, err := d.Map(data)
	require.NoError(t, err)
	startDMA(d, addr, len(data))
	<-d.IRQ()
	require.Equal(t, uint32(intHrDMADone), d.Read(regIntSts))
	d.Write(regIntSts, d.Read(regIntSts))
	d.Unmap(addr)
}

func simSettle(t *testing.T, d *SimDevice) {
	t.Helper()
	for i := 0; d.Read(regHashSts)&hashDone == 0; i++ {
		require.Less(t, i, 10, "core did not settle")
	}
}

func TestSimIntStsWriteOneToClear(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	resetAndConfigure(d, SHA256.mode(), 3)
	addr, err := d.Map([]byte("abc"))
	require.NoError(t, err)
	startDMA(d, addr, 3)
	<-d.IRQ()

	require.Equal(t, uint32(intHrDMADone), d.Read(regIntSts))
	d.Write(regIntSts, intHrDMAErr)
	assert.Equal(t, uint32(intHrDMADone), d.Read(regIntSts))
	d.Write(regIntSts, intHrDMADone)
	assert.Zero(t, d.Read(regIntSts))
}

func TestSimCtrlWriteMask(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	d.Write(regCtrl, ctrlHashFlush)
	assert.Zero(t, d.Read(regCtrl), "bits without write enable are ignored")

	d.Write(regCtrl, ctrlHashFlush|ctrlHashFlush<<ctrlWriteMaskBits)
	assert.Equal(t, uint32(ctrlHashFlush), d.Read(regCtrl))

	d.Write(regCtrl, ctrlWriteMaskAll)
	assert.Zero(t, d.Read(regCtrl))
	assert.Equal(t, 3, d.Writes())
}

func TestSimDigestOrder(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	// Result words with HASH_SWAP_DO read back in memory order.
	resetAndConfigure(d, SHA256.mode(), 3)
	simBurst(t, d, []byte("abc"))
	simSettle(t, d)
	assert.Equal(t, uint32(0xbf1678ba), d.Read(regHashDout0))
	out := make([]byte, SizeSHA256)
	readDigest(d, out)
	assert.Equal(t, refSum(SHA256, []byte("abc")), out)

	// Without it they come out big endian.
	resetAndConfigure(d, SHA256.mode(), 3)
	d.Write(regHashCtrl, hashModeSHA256)
	simBurst(t, d, []byte("abc"))
	simSettle(t, d)
	assert.Equal(t, uint32(0xba7816bf), d.Read(regHashDout0))
}

func TestSimMD5(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	data := seq(200, 3)
	resetAndConfigure(d, MD5.mode(), len(data))
	simBurst(t, d, data[:64])
	assert.Zero(t, d.Read(regHashSts))
	simBurst(t, d, data[64:])
	simSettle(t, d)

	out := make([]byte, SizeMD5)
	readDigest(d, out)
	want := md5.Sum(data)
	assert.Equal(t, want[:], out, "accelerated: %v", d.Accelerated())
	assert.Equal(t, 2, d.Bursts())
}

func TestSimDMAError(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	resetAndConfigure(d, SHA1.mode(), 8)
	startDMA(d, 0xdead0000, 8)
	<-d.IRQ()
	assert.Equal(t, uint32(intHrDMAErr), d.Read(regIntSts))

	// A burst past the message length is refused too.
	resetAndConfigure(d, SHA1.mode(), 4)
	simBurst(t, d, seq(4, 0))
	addr, err := d.Map(seq(4, 4))
	require.NoError(t, err)
	startDMA(d, addr, 4)
	<-d.IRQ()
	assert.Equal(t, uint32(intHrDMAErr), d.Read(regIntSts))
}

func TestSimInterleaved(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	resetAndConfigure(d, SHA1.mode(), 128)
	simBurst(t, d, seq(64, 0))
	assert.Zero(t, d.Interleaved())

	// Starting another message over a half hashed one.
	resetAndConfigure(d, SHA1.mode(), 64)
	assert.Equal(t, 1, d.Interleaved())
}

func TestSimInterruptMasked(t *testing.T) {
	d := NewSimDevice()
	defer d.Close()

	resetAndConfigure(d, SHA1.mode(), 4)
	d.Write(regIntEna, 0)
	addr, err := d.Map(seq(4, 0))
	require.NoError(t, err)
	startDMA(d, addr, 4)

	select {
	case <-d.IRQ():
		t.Fatal("masked interrupt was raised")
	default:
	}
	assert.Equal(t, uint32(intHrDMADone), d.Read(regIntSts))
}
