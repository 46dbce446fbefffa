// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

const syncByte uint8 = 0x47

const (
	// 单个TS packet固定大小
	packetSize = 188
	// TS Header后的可用空间
	packetBodySize = packetSize - 4
)

// 固定PID
const (
	PidPat uint16 = 0x0000
	PidSdt uint16 = 0x0011

	// 首路elementary stream的PID，后续依次递增
	pidElementaryStreamFirst uint16 = 0x0100
	// PID只有13位，0x1FFF是null packet
	pidElementaryStreamLast uint16 = 0x1FFE
)

// PsiId
const (
	TsPsiIdPas uint8 = 0x00 // program_association_section
	TsPsiIdPms uint8 = 0x02 // TS_program_map_section
	TsPsiIdSds uint8 = 0x42 // service_description_section (DVB, actual_transport_stream)
)

// stream_type
// <iso13818-1.pdf> <Table 2-29> <page 66/174>
const (
	StreamTypeAvc         uint8 = 0x1B
	StreamTypeHevc        uint8 = 0x24
	StreamTypeAacAdts     uint8 = 0x0F
	StreamTypeAacLatm     uint8 = 0x11
	StreamTypePrivateData uint8 = 0x06 // PES packets containing private data，Opus走这个类型加注册描述符
)

// stream_id of PES Header
const (
	StreamIdVideo   uint8 = 0xE0
	StreamIdAudio   uint8 = 0xC0
	StreamIdPrivate uint8 = 0xBD // private_stream_1
)

const (
	DescriptorTagRegistration uint8 = 0x05
	DescriptorTagService      uint8 = 0x48
	DescriptorTagExtension    uint8 = 0x7F
)

const (
	opusIdentifier uint32 = 0x4F707573 // "Opus"
	hevcIdentifier uint32 = 0x48455643 // "HEVC"

	// DVB extension descriptor内的Opus声道数扩展tag
	opusChannelConfigExtensionTag uint8 = 0x80
)

// private_section的长度上限，超过则编码失败
const maxSectionLength = 1020

const (
	defaultPmtPid            uint16 = 0x0016
	defaultPatPeriod                = 40  // 每N个packet重发一次PAT+PMT
	defaultSdtPeriod                = 200 // 每N个packet重发一次SDT
	defaultTransportStreamId uint16 = 0x0001
	defaultOriginalNetworkId uint16 = 0xFF01
	defaultServiceId         uint16 = 0x0001
)

const (
	serviceTypeDigitalTelevision uint8 = 0x01

	// SDT running_status，固定"running"
	runningStatusRunning uint8 = 4
)

// continuity_counter种子值，第一次递增后为0
const initialCc uint8 = 15
