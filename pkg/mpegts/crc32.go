// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

// MPEG-2 CRC32，生成多项式0x04C11DB7，不做位序反转
// 注意，与hash/crc32的IEEE（反转位序）不是同一个算法
var crc32Table [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crc32Table[i] = crc
	}
}

func CalcCrc32(crc uint32, buffer []byte) uint32 {
	for _, b := range buffer {
		crc = (crc << 8) ^ crc32Table[uint8(crc>>24)^b]
	}
	return crc
}
