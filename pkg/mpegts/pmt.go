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

// Pmt
//
// ----------------------------------------
// Program Map Table
// <iso13818-1.pdf> <2.4.4.8> <page 64/174>
// program_number           [16b] ** 即table_id_extension
// reserved                 [3b]
// PCR_PID                  [13b] **
// reserved                 [4b]
// program_info_length      [12b] ** 本实现恒为0
// -----loop-----
// stream_type              [8b]  *
// reserved                 [3b]
// elementary_PID           [13b] **
// reserved                 [4b]
// ES_info_length           [12b] **
// descriptor loop
// --------------
// ----------------------------------------
type Pmt struct {
	ProgramNumber   uint16
	PcrPid          uint16
	ProgramElements []PmtProgramElement
}

type PmtProgramElement struct {
	StreamType  uint8
	Pid         uint16
	Descriptors []Descriptor

	// EsInfoLength 仅解析时填充，编码时由Descriptors计算
	EsInfoLength uint16
}

func (pmt *Pmt) TableId() uint8 {
	return TsPsiIdPms
}

func (pmt *Pmt) TableIdExtension() uint16 {
	return pmt.ProgramNumber
}

func (pmt *Pmt) CalcPayloadLength() uint16 {
	// PCR_PID加program_info_length字段
	length := uint16(4)
	for _, pe := range pmt.ProgramElements {
		length += 5
		length += calcDescriptorsLength(pe.Descriptors)
	}
	return length
}

func (pmt *Pmt) WritePayload(bw *nazabits.BitWriter) {
	bw.WriteBits8(3, 0xFF)
	bw.WriteBits16(13, pmt.PcrPid)
	bw.WriteBits8(4, 0xFF)
	bw.WriteBits16(12, 0x0) // program_info_length

	for _, pe := range pmt.ProgramElements {
		bw.WriteBits8(8, pe.StreamType)
		bw.WriteBits8(3, 0xFF)
		bw.WriteBits16(13, pe.Pid)
		writeDescriptorsWithLength(bw, 0xF, pe.Descriptors)
	}
}

func (pmt *Pmt) SearchPid(pid uint16) *PmtProgramElement {
	for i := range pmt.ProgramElements {
		if pmt.ProgramElements[i].Pid == pid {
			return &pmt.ProgramElements[i]
		}
	}
	return nil
}

// ParsePmt 解析不带pointer_field的section数据
//
// 注意，descriptor只解析出原始长度，不展开内容
func ParsePmt(b []byte) (pmt Pmt, version uint8) {
	br := nazabits.NewBitReader(b)
	_, _ = br.ReadBits8(8) // table_id
	_, _ = br.ReadBits8(4)
	sl, _ := br.ReadBits16(12)
	pmt.ProgramNumber, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	version, _ = br.ReadBits8(5)
	_, _ = br.ReadBits8(1) // current_next_indicator
	_, _ = br.ReadBits8(8) // section_number
	_, _ = br.ReadBits8(8) // last_section_number
	_, _ = br.ReadBits8(3)
	pmt.PcrPid, _ = br.ReadBits16(13)
	_, _ = br.ReadBits8(4)
	pil, _ := br.ReadBits16(12)
	if pil != 0 {
		_, _ = br.ReadBytes(uint(pil))
	}

	// section_length去掉固定头、program_info以及CRC后即loop长度
	remaining := int(sl) - 9 - int(pil) - 4

	for remaining > 0 {
		var pe PmtProgramElement
		pe.StreamType, _ = br.ReadBits8(8)
		_, _ = br.ReadBits8(3)
		pe.Pid, _ = br.ReadBits16(13)
		_, _ = br.ReadBits8(4)
		esil, _ := br.ReadBits16(12)
		if esil != 0 {
			_, _ = br.ReadBytes(uint(esil))
		}
		pe.EsInfoLength = esil
		pmt.ProgramElements = append(pmt.ProgramElements, pe)
		remaining -= 5 + int(esil)
	}
	return
}
