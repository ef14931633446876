// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, a CRC8 calculation
package common

import "github.com/sigurn/crc8"

// sensirion is the CRC-8 variant used by Sensirion sensors: polynomial 0x31,
// initial value 0xff, no reflection and no final xor.
var sensirion = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xff,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xf7,
	Name:   "CRC-8/NRSC-5",
})

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
//
// The CRC of an empty slice is the initial value, 0xff.
func CRC8(bytes []byte) byte {
	return crc8.Checksum(bytes, sensirion)
}

// AppendWord appends the big-endian bytes of val to dst, followed by their
// CRC8.
func AppendWord(dst []byte, val uint16) []byte {
	w := [2]byte{byte(val >> 8), byte(val)}
	return append(dst, w[0], w[1], CRC8(w[:]))
}

// ValidWord reports whether the third byte of triplet is the CRC8 of the
// first two.
func ValidWord(triplet []byte) bool {
	return len(triplet) >= 3 && CRC8(triplet[:2]) == triplet[2]
}
