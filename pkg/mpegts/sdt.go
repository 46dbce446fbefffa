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

// Sdt
//
// ----------------------------------------
// Service description section
// <en_300468.pdf> <5.2.3>
// transport_stream_id        [16b] ** 即table_id_extension
// original_network_id        [16b] **
// reserved_future_use        [8b]
// -----loop-----
// service_id                 [16b] **
// reserved_future_use        [6b]
// EIT_schedule_flag          [1b]
// EIT_present_following_flag [1b]
// running_status             [3b]  固定"running"
// free_CA_mode               [1b]
// descriptors_loop_length    [12b] **
// service_descriptor (tag 0x48)
// --------------
// ----------------------------------------
type Sdt struct {
	TransportStreamId uint16
	OriginalNetworkId uint16
	ServiceElements   []SdtServiceElement
}

type SdtServiceElement struct {
	ServiceId    uint16
	ServiceType  uint8
	ProviderName string
	Name         string
}

func (sdt *Sdt) TableId() uint8 {
	return TsPsiIdSds
}

func (sdt *Sdt) TableIdExtension() uint16 {
	return sdt.TransportStreamId
}

func (sdt *Sdt) CalcPayloadLength() uint16 {
	length := uint16(3)
	for _, se := range sdt.ServiceElements {
		length += 5
		length += calcDescriptorsLength(se.descriptors())
	}
	return length
}

func (sdt *Sdt) WritePayload(bw *nazabits.BitWriter) {
	bw.WriteBits16(16, sdt.OriginalNetworkId)
	bw.WriteBits8(8, 0xFF) // reserved_future_use

	for _, se := range sdt.ServiceElements {
		bw.WriteBits16(16, se.ServiceId)
		bw.WriteBits8(6, 0xFF) // reserved_future_use
		bw.WriteBits8(2, 0x0)  // EIT_schedule_flag, EIT_present_following_flag
		// running_status与free_CA_mode作为descriptor loop长度字段的高半字节
		writeDescriptorsWithLength(bw, runningStatusRunning<<1, se.descriptors())
	}
}

func (se SdtServiceElement) descriptors() []Descriptor {
	return []Descriptor{
		{
			Tag: DescriptorTagService,
			Service: DescriptorService{
				ServiceType:  se.ServiceType,
				ProviderName: se.ProviderName,
				Name:         se.Name,
			},
		},
	}
}

// ParseSdt 解析不带pointer_field的section数据
func ParseSdt(b []byte) (sdt Sdt, version uint8) {
	br := nazabits.NewBitReader(b)
	_, _ = br.ReadBits8(8) // table_id
	_, _ = br.ReadBits8(4)
	sl, _ := br.ReadBits16(12)
	sdt.TransportStreamId, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(2)
	version, _ = br.ReadBits8(5)
	_, _ = br.ReadBits8(1) // current_next_indicator
	_, _ = br.ReadBits8(8) // section_number
	_, _ = br.ReadBits8(8) // last_section_number
	sdt.OriginalNetworkId, _ = br.ReadBits16(16)
	_, _ = br.ReadBits8(8) // reserved_future_use

	remaining := int(sl) - 8 - 4

	for remaining > 0 {
		var se SdtServiceElement
		se.ServiceId, _ = br.ReadBits16(16)
		_, _ = br.ReadBits8(8) // reserved与EIT flags
		_, _ = br.ReadBits8(4) // running_status, free_CA_mode
		dll, _ := br.ReadBits16(12)
		read := 0
		for read < int(dll) {
			tag, _ := br.ReadBits8(8)
			length, _ := br.ReadBits8(8)
			if tag == DescriptorTagService {
				se.ServiceType, _ = br.ReadBits8(8)
				pnl, _ := br.ReadBits8(8)
				pn, _ := br.ReadBytes(uint(pnl))
				se.ProviderName = string(pn)
				nl, _ := br.ReadBits8(8)
				n, _ := br.ReadBytes(uint(nl))
				se.Name = string(n)
			} else {
				_, _ = br.ReadBytes(uint(length))
			}
			read += 2 + int(length)
		}
		sdt.ServiceElements = append(sdt.ServiceElements, se)
		remaining -= 5 + int(dll)
	}
	return
}
