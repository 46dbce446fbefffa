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

// Pat
//
// ---------------------------------------------------------------------------------------------------
// Program association section
// <iso13818-1.pdf> <2.4.4.3> <page 61/174>
// transport_stream_id      [16b] ** 即table_id_extension
// -----loop-----
// program_number           [16b] **
// reserved                 [3b]
// program_map_PID          [13b] ** if program_number == 0 then network_PID else then program_map_PID
// --------------
// ---------------------------------------------------------------------------------------------------
type Pat struct {
	TransportStreamId uint16
	ProgramElements   []PatProgramElement
}

type PatProgramElement struct {
	ProgramNumber uint16
	PmtPid        uint16
}

func (pat *Pat) TableId() uint8 {
	return TsPsiIdPas
}

func (pat *Pat) TableIdExtension() uint16 {
	return pat.TransportStreamId
}

func (pat *Pat) CalcPayloadLength() uint16 {
	return uint16(4 * len(pat.ProgramElements))
}

func (pat *Pat) WritePayload(bw *nazabits.BitWriter) {
	for _, pe := range pat.ProgramElements {
		bw.WriteBits16(16, pe.ProgramNumber)
		bw.WriteBits8(3, 0xFF)
		bw.WriteBits16(13, pe.PmtPid)
	}
}

func (pat *Pat) SearchPid(pid uint16) bool {
	for _, pe := range pat.ProgramElements {
		if pid == pe.PmtPid {
			return true
		}
	}
	return false
}

// ParsePat 解析不带pointer_field的section数据
func ParsePat(b []byte) (pat Pat, version uint8) {
	// TODO chef: 检查长度
	br := nazabits.NewBitReader(b)
	_, _ = br.ReadBits8(8) // table_id
	_, _ = br.ReadBits8(4)
	sl, _ := br.ReadBits16(12)
	pat.TransportStreamId, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	version, _ = br.ReadBits8(5)
	_, _ = br.ReadBits8(1) // current_next_indicator
	_, _ = br.ReadBits8(8) // section_number
	_, _ = br.ReadBits8(8) // last_section_number

	length := sl - 9

	for i := uint16(0); i < length; i += 4 {
		var pe PatProgramElement
		pe.ProgramNumber, _ = br.ReadBits16(16)
		_, _ = br.ReadBits8(3)
		pe.PmtPid, _ = br.ReadBits16(13)
		pat.ProgramElements = append(pat.ProgramElements, pe)
	}
	return
}
