// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// MPU9250 register map (subset used for bring-up and slave chaining).
const (
	mpuAddr = 0x68

	regSmplrtDiv    = 0x19
	regConfig       = 0x1A
	regGyroConfig   = 0x1B
	regAccelConfig  = 0x1C
	regAccelConfig2 = 0x1D
	regI2CMstCtrl   = 0x24
	regI2CSlv0Addr  = 0x25
	regI2CSlv0Reg   = 0x26
	regI2CSlv0Ctrl  = 0x27
	regI2CSlv1Addr  = 0x28
	regI2CSlv1Reg   = 0x29
	regI2CSlv1Ctrl  = 0x2A
	regI2CSlv4Ctrl  = 0x34
	regIntPinCfg    = 0x37
	regIntEnable    = 0x38
	regIntStatus    = 0x3A
	regAccelXoutH   = 0x3B
	regI2CMstDelay  = 0x67
	regUserCtrl     = 0x6A
	regPwrMgmt1     = 0x6B
	regWhoAmI       = 0x75

	mpuWhoAmIMPU9250 = 0x71
	mpuWhoAmIMPU6500 = 0x70

	bitHReset       = 0x80
	bitClockPLLX    = 0x01
	bitI2CBypass    = 0x02
	bitLatchIntEn   = 0x20
	bitIntAnyRdClr  = 0x10
	bitRawRdyEn     = 0x01
	bitI2CMstEn     = 0x20
	bitSlvEnable    = 0x80
	bitSlvRead      = 0x80
	bitSlvDelayEn   = 0x03 // delay slaves 0 and 1
	i2cMstClk400kHz = 0x0D

	gyroFS2000 = 3 << 3
	accelFS8   = 2 << 3
	// 8 kHz internal rate / (1 + 15) = 500 Hz output
	sampleRateDiv = 15
)

// AK8963 magnetometer, reachable behind the MPU9250's auxiliary bus.
const (
	akAddr = 0x0C

	akRegWIA   = 0x00
	akRegST1   = 0x02
	akRegCNTL1 = 0x0A

	akWhoAmI = 0x48
	// 16-bit output, continuous measurement mode 2 (100 Hz)
	akMode16BitCont2 = 0x16
)

// LPS25H barometer, chained as the second auxiliary slave.
const (
	lpsAddr = 0x5D

	lpsRegWhoAmI   = 0x0F
	lpsRegCtrl1    = 0x20
	lpsRegStatus   = 0x27
	lpsAddrAutoInc = 0x80

	lpsWhoAmI = 0xBD
	// power on, 25 Hz pressure and temperature output
	lpsCtrl1Active = 0xC0
)
