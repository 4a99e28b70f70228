// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tclac

import "encoding/binary"

// statusPayload builds a status payload of n bytes with the room
// temperature word set to raw16.
func statusPayload(n int, raw16 uint16) []byte {
	p := make([]byte, n)
	if n >= statusRoomTempOffset+2 {
		binary.BigEndian.PutUint16(p[statusRoomTempOffset:], raw16)
	}
	return p
}

// wordFor returns the 16-bit room temperature encoding closest to c
func wordFor(c float64) uint16 {
	return uint16((c*1.8+32.0)*roomTempDivisor + 0.5)
}

// deviceFrame builds a device->controller wire frame
func deviceFrame(cmd uint8, payload []byte) []byte {
	return BuildFrame(HeaderFromDevice, cmd, payload)
}
