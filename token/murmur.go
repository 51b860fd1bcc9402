/*
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
/*
 * Content before git sha 34fdeebefcbf183ed7f916f931aa0586fdaa1b40
 * Copyright (c) 2016, The Gocql authors,
 * provided under the BSD-3-Clause License.
 * See the NOTICE file distributed with this work for additional information.
 */

package token

import "encoding/binary"

const (
	c1    int64 = -8663945395140668459 // 0x87c37b91114253d5
	c2    int64 = 5545529020109919103  // 0x4cf5ad432745937f
	fmix1 int64 = -49064778989728563   // 0xff51afd7ed558ccd
	fmix2 int64 = -4265267296055464877 // 0xc4ceb9fe1a85ec53
)

// murmur3H1 is the first half of MurmurHash3 x64 128 as computed by the
// Cassandra Murmur3Partitioner: tail bytes are sign extended and right shifts
// are logical.
func murmur3H1(data []byte) int64 {
	var h1, h2 int64

	n := len(data) / 16
	for i := 0; i < n; i++ {
		k1 := int64(binary.LittleEndian.Uint64(data[i*16:]))
		k2 := int64(binary.LittleEndian.Uint64(data[i*16+8:]))
		h1, h2 = mixBlock(h1, h2, k1, k2)
	}

	tail := data[n*16:]
	var k1, k2 int64
	for i := len(tail) - 1; i >= 8; i-- {
		k2 ^= int64(int8(tail[i])) << (uint(i-8) * 8)
	}
	if len(tail) > 8 {
		k2 *= c2
		k2 = rotl(k2, 33)
		k2 *= c1
		h2 ^= k2
	}
	for i := min(len(tail), 8) - 1; i >= 0; i-- {
		k1 ^= int64(int8(tail[i])) << (uint(i) * 8)
	}
	if len(tail) > 0 {
		k1 *= c1
		k1 = rotl(k1, 31)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= int64(len(data))
	h2 ^= int64(len(data))

	h1 += h2
	h2 += h1

	h1 = fmix(h1)
	h2 = fmix(h2)

	return h1 + h2
}

func mixBlock(h1, h2, k1, k2 int64) (int64, int64) {
	k1 *= c1
	k1 = rotl(k1, 31)
	k1 *= c2
	h1 ^= k1

	h1 = rotl(h1, 27)
	h1 += h2
	h1 = h1*5 + 0x52dce729

	k2 *= c2
	k2 = rotl(k2, 33)
	k2 *= c1
	h2 ^= k2

	h2 = rotl(h2, 31)
	h2 += h1
	h2 = h2*5 + 0x38495ab5
	return h1, h2
}

func fmix(n int64) int64 {
	n ^= int64(uint64(n) >> 33)
	n *= fmix1
	n ^= int64(uint64(n) >> 33)
	n *= fmix2
	n ^= int64(uint64(n) >> 33)
	return n
}

func rotl(x int64, r uint8) int64 {
	return (x << r) | int64(uint64(x)>>(64-r))
}
