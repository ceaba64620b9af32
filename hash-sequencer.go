// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

// flushHash resets the hash core. The flush bit has to be asserted and
// then cleared again; a single write leaves the core held in reset.
func flushHash(dev Device) {
	dev.Write(regCtrl, dev.Read(regCtrl)|ctrlHashFlush|ctrlWriteMaskAll)
	dev.Write(regCtrl, (dev.Read(regCtrl)&^ctrlHashFlush)|ctrlWriteMaskAll)
}

// resetAndConfigure programs the hash core for a message of total bytes.
// It runs once per request, before the first burst.
func resetAndConfigure(dev Device, mode uint32, total int) {
	flushHash(dev)

	for i := uint32(0); i < hashDoutWords; i++ {
		dev.Write(regHashDout0+4*i, 0)
	}

	dev.Write(regIntEna, intHrDMAErr|intHrDMADone)
	dev.Write(regIntSts, intHrDMAErr|intHrDMADone)

	dev.Write(regHashCtrl, mode|hashSwapDO)

	// Host and core word order differ; swap all three FIFOs the same way.
	dev.Write(regConf, confByteswapHrFIFO|confByteswapBrFIFO|confByteswapBtFIFO)

	dev.Write(regHashMsgLen, uint32(total))
}

// startDMA arms one burst of count bytes at addr. The length register
// counts 32-bit words; the start bit is written together with its
// write-enable bit.
func startDMA(dev Device, addr uint32, count int) {
	dev.Write(regHrDMAStart, addr)
	dev.Write(regHrDMALen, uint32((count+3)/4))
	dev.Write(regCtrl, ctrlHashStart|ctrlHashStart<<ctrlWriteMaskBits)
}
