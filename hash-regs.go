// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

// Device is the register file and DMA front-end of one hashing engine.
//
// Read and Write access 32-bit registers at byte offsets. Map makes buf
// visible to the DMA engine and returns its bus address; it may fail with
// ErrDeviceBusy when no mapping can be made right now. Unmap releases an
// address returned by Map. IRQ delivers one value per raised interrupt and
// is closed when the device goes away.
type Device interface {
	Read(reg uint32) uint32
	Write(reg, val uint32)
	Map(buf []byte) (uint32, error)
	Unmap(addr uint32)
	IRQ() <-chan struct{}
}

// Register offsets.
const (
	regIntSts     = 0x0000
	regIntEna     = 0x0004
	regCtrl       = 0x0008
	regConf       = 0x000c
	regHrDMAStart = 0x001c
	regHrDMALen   = 0x0020
	regHashCtrl   = 0x0180
	regHashSts    = 0x0184
	regHashMsgLen = 0x0188
	regHashDout0  = 0x018c
)

// INTSTS / INTENA bits.
const (
	intBcDMADone = 1 << 0
	intBcDMAErr  = 1 << 1
	intHrDMADone = 1 << 2
	intHrDMAErr  = 1 << 3

	intDMAErrMask = intBcDMAErr | intHrDMAErr
)

// CTRL bits. The upper half is a write-enable mask for the lower half.
const (
	ctrlHashStart     = 1 << 3
	ctrlHashFlush     = 1 << 6
	ctrlWriteMaskBits = 16
	ctrlWriteMaskAll  = 0xffff << ctrlWriteMaskBits
)

// CONF bits.
const (
	confByteswapBrFIFO = 1 << 3
	confByteswapBtFIFO = 1 << 4
	confByteswapHrFIFO = 1 << 5
)

// HASH_CTRL algorithm selectors and flags.
const (
	hashModeSHA1   = 0x0
	hashModeMD5    = 0x1
	hashModeSHA256 = 0x2
	hashModeMask   = 0x3

	hashSwapDO = 1 << 3
)

// HASH_STS bits.
const hashDone = 1 << 0

// hashDoutWords covers the largest supported digest.
const hashDoutWords = MaxSize / 4
