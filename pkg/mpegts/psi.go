// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/ThibaultBee/StreamPack-sub005/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

// SectionPayloader PSI section的表私有部分，PAT/PMT/SDT各实现一份
//
// 公共的section框架（header、长度、CRC32）统一由 PackSection 完成
type SectionPayloader interface {
	TableId() uint8
	TableIdExtension() uint16

	// CalcPayloadLength 表私有部分的长度，不含框架与CRC
	CalcPayloadLength() uint16

	// WritePayload 写入表私有部分，写入量必须与 CalcPayloadLength 一致
	WritePayload(bw *nazabits.BitWriter)
}

// PackSection 编码单个PSI section，附带TS packet装载所需的pointer_field前导字节
//
// ---------------------------------------------------------------------------------------------------
// pointer_field            [8b]
// table_id                 [8b]  *
// section_syntax_indicator [1b]
// private_indicator        [1b]
// reserved                 [2b]
// section_length           [12b] **
// table_id_extension       [16b] **
// reserved                 [2b]
// version_number           [5b]
// current_next_indicator   [1b]  *
// section_number           [8b]  *
// last_section_number      [8b]  * 只支持单section表，恒为0
// -----表私有部分-----
// CRC_32                   [32b] **** MSB-first
// ---------------------------------------------------------------------------------------------------
func PackSection(p SectionPayloader, version uint8) ([]byte, error) {
	payloadLength := p.CalcPayloadLength()

	// table_id_extension起至payload末尾，再加CRC
	sectionLength := 5 + payloadLength + 4
	if int(sectionLength) > maxSectionLength {
		return nil, base.NewErrSectionTooLong(p.TableId(), int(sectionLength))
	}

	section := make([]byte, 1+3+sectionLength)
	bw := nazabits.NewBitWriter(section)

	bw.WriteBits8(8, 0x00) // pointer_field
	bw.WriteBits8(8, p.TableId())
	bw.WriteBit(1) // section_syntax_indicator
	if p.TableId() == TsPsiIdSds {
		// SDT的private_indicator为1，即长度字段高半字节0xF
		bw.WriteBit(1)
	} else {
		bw.WriteBit(0)
	}
	bw.WriteBits8(2, 0xFF) // reserved
	bw.WriteBits16(12, sectionLength)
	bw.WriteBits16(16, p.TableIdExtension())
	bw.WriteBits8(2, 0xFF) // reserved
	bw.WriteBits8(5, version)
	bw.WriteBit(1)        // current_next_indicator
	bw.WriteBits8(8, 0x0) // section_number
	bw.WriteBits8(8, 0x0) // last_section_number

	p.WritePayload(&bw)

	// CRC不含pointer_field，按ISO 13818-1以MSB-first写入
	crc := CalcCrc32(0xFFFFFFFF, section[1:len(section)-4])
	bele.BePutUint32(section[len(section)-4:], crc)

	return section, nil
}

// ----- descriptor ----------------------------------------------------------------------------------------------------

type Descriptor struct {
	Tag          uint8
	Registration DescriptorRegistration
	Extension    DescriptorExtension
	Service      DescriptorService
}

type DescriptorRegistration struct {
	FormatIdentifier             uint32
	AdditionalIdentificationInfo []byte
}

type DescriptorExtension struct {
	Tag  uint8
	Data []byte
}

type DescriptorService struct {
	ServiceType  uint8
	ProviderName string
	Name         string
}

func calcDescriptorsLength(ds []Descriptor) uint16 {
	length := uint16(0)
	for _, d := range ds {
		length += 2 // tag and length
		length += uint16(calcDescriptorLength(d))
	}
	return length
}

func calcDescriptorLength(d Descriptor) uint8 {
	switch d.Tag {
	case DescriptorTagRegistration:
		return uint8(4 + len(d.Registration.AdditionalIdentificationInfo))
	case DescriptorTagExtension:
		return uint8(1 + len(d.Extension.Data))
	case DescriptorTagService:
		return uint8(1 + 1 + len(d.Service.ProviderName) + 1 + len(d.Service.Name))
	}
	return 0
}

// 带12位长度前缀的descriptor loop，PMT的ES_info与SDT的descriptor loop共用
func writeDescriptorsWithLength(bw *nazabits.BitWriter, high4 uint8, ds []Descriptor) {
	bw.WriteBits8(4, high4)
	bw.WriteBits16(12, calcDescriptorsLength(ds))
	for _, d := range ds {
		writeDescriptor(bw, d)
	}
}

func writeDescriptor(bw *nazabits.BitWriter, d Descriptor) {
	bw.WriteBits8(8, d.Tag)
	bw.WriteBits8(8, calcDescriptorLength(d))

	switch d.Tag {
	case DescriptorTagRegistration:
		bw.WriteBits16(16, uint16((d.Registration.FormatIdentifier>>16)&0xFFFF))
		bw.WriteBits16(16, uint16(d.Registration.FormatIdentifier&0xFFFF))
		for _, b := range d.Registration.AdditionalIdentificationInfo {
			bw.WriteBits8(8, b)
		}
	case DescriptorTagExtension:
		bw.WriteBits8(8, d.Extension.Tag)
		for _, b := range d.Extension.Data {
			bw.WriteBits8(8, b)
		}
	case DescriptorTagService:
		bw.WriteBits8(8, d.Service.ServiceType)
		bw.WriteBits8(8, uint8(len(d.Service.ProviderName)))
		for i := 0; i < len(d.Service.ProviderName); i++ {
			bw.WriteBits8(8, d.Service.ProviderName[i])
		}
		bw.WriteBits8(8, uint8(len(d.Service.Name)))
		for i := 0; i < len(d.Service.Name); i++ {
			bw.WriteBits8(8, d.Service.Name[i])
		}
	}
}
