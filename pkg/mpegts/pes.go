// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/naza/pkg/nazabits"
)

// -----------------------------------------------------------
// <iso13818-1.pdf>
// <2.4.3.6 PES packet> <page 49/174>
// <Table E.1 - PES packet header example> <page 142/174>
// packet_start_code_prefix  [24b] *** always 0x00, 0x00, 0x01
// stream_id                 [8b]  *
// PES_packet_length         [16b] **
// '10'                      [2b]
// PES_scrambling_control    [2b]
// PES_priority              [1b]
// data_alignment_indicator  [1b]  每个access unit从新的PES开始，恒为1
// copyright                 [1b]
// original_or_copy          [1b]  *
// PTS_DTS_flags             [2b]
// ESCR_flag                 [1b]
// ES_rate_flag              [1b]
// DSM_trick_mode_flag       [1b]
// additional_copy_info_flag [1b]
// PES_CRC_flag              [1b]
// PES_extension_flag        [1b]  *
// PES_header_data_length    [8b]  *
// -----------------------------------------------------------
type Pes struct {
	Sid        uint8
	Ppl        uint16
	PtsDtsFlag uint8
	Phdl       uint8
	Pts        uint64
	Dts        uint64
}

// packPesHeader 将PES Header写入out，返回写入的字节数
//
// @param pts, dts: 90kHz时钟。dts与pts相等时只写PTS字段
// @param payloadLen: access unit大小，超过PES_packet_length表示范围时写0（unbounded，仅视频允许）
func packPesHeader(out []byte, sid uint8, payloadLen int, pts uint64, dts uint64) int {
	headerDataLen := uint8(5)
	flags := uint8(0x80) // PTS
	if dts != pts {
		headerDataLen += 5
		flags |= 0x40 // DTS
	}

	// PES Header去掉前6字节后的剩余部分加payload
	pesSize := payloadLen + int(headerDataLen) + 3
	if pesSize > 0xFFFF {
		pesSize = 0
	}

	out[0] = 0x00 // packet_start_code_prefix
	out[1] = 0x00
	out[2] = 0x01
	out[3] = sid
	out[4] = uint8(pesSize >> 8)
	out[5] = uint8(pesSize & 0xFF)
	out[6] = 0x84 // '10'加data_alignment_indicator
	out[7] = flags
	out[8] = headerDataLen
	wpos := 9

	packPts(out[wpos:], flags>>6, pts)
	wpos += 5
	if dts != pts {
		packPts(out[wpos:], 1, dts)
		wpos += 5
	}

	return wpos
}

// 注意，除PTS外，DTS也使用这个函数打包
func packPts(out []byte, fb uint8, pts uint64) {
	var val uint64
	// PTS[32..30]在bit3至bit1，bit0是marker
	out[0] = (fb << 4) | ((uint8(pts>>30) & 0x07) << 1) | 1

	val = (((pts >> 15) & 0x7FFF) << 1) | 1
	out[1] = uint8(val >> 8)
	out[2] = uint8(val)

	val = ((pts & 0x7FFF) << 1) | 1
	out[3] = uint8(val >> 8)
	out[4] = uint8(val)
}

// ParsePes 解析PES Header，返回头部长度
func ParsePes(b []byte) (pes Pes, length int) {
	br := nazabits.NewBitReader(b)
	_, _ = br.ReadBits32(24) // packet_start_code_prefix
	pes.Sid, _ = br.ReadBits8(8)
	pes.Ppl, _ = br.ReadBits16(16)

	_, _ = br.ReadBits8(8)
	pes.PtsDtsFlag, _ = br.ReadBits8(2)
	_, _ = br.ReadBits8(6)
	pes.Phdl, _ = br.ReadBits8(8)

	length = 9 + int(pes.Phdl)

	if pes.PtsDtsFlag&0x2 != 0 {
		_, pes.Pts = readPts(b[9:])
	}
	if pes.PtsDtsFlag&0x1 != 0 {
		_, pes.Dts = readPts(b[14:])
	} else {
		pes.Dts = pes.Pts
	}

	return
}

// read pts or dts
func readPts(b []byte) (fb uint8, pts uint64) {
	fb = b[0] >> 4
	pts |= uint64((b[0]>>1)&0x07) << 30
	pts |= (uint64(b[1])<<8 | uint64(b[2])) >> 1 << 15
	pts |= (uint64(b[3])<<8 | uint64(b[4])) >> 1
	return
}
