// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

// OnTsPacket 每个188字节的TS packet回调一次
//
// @param b: 内存块引用，回调结束后内部会复用，外部如需持有应拷贝
type OnTsPacket func(b []byte) error

// Pcr program_clock_reference，27MHz时钟
//
// 打包时按300:1拆分为33位base和9位extension
type Pcr uint64

// TsPacketWriter 把任意payload切割进固定188字节的TS packet
//
// 除当前正在组装的packet外不持有任何缓存，每组装满一个packet立即回调
type TsPacketWriter struct {
	onTsPacket OnTsPacket
	packet     [packetSize]byte
}

func NewTsPacketWriter(onTsPacket OnTsPacket) *TsPacketWriter {
	return &TsPacketWriter{
		onTsPacket: onTsPacket,
	}
}

// WritePacket 组装并吐出一个TS packet，返回写入的payload字节数
//
// payload大于当前packet剩余空间时只消费放得下的部分，由调用方循环调用；
// 小于剩余空间时在Adaptation中用0xFF填充，保证packet固定188字节。
//
// -----TS Header----------------
// sync_byte
// transport_error_indicator    0
// payload_unit_start_indicator
// transport_priority           0
// PID
// transport_scrambling_control 0
// adaptation_field_control
// continuity_counter
// ------------------------------
func (w *TsPacketWriter) WritePacket(pid uint16, payload []byte, isStart bool, cc uint8, discontinuity bool, randomAccess bool, pcr *Pcr) (int, error) {
	packet := w.packet[:]

	packet[0] = syncByte
	packet[1] = 0x0
	if isStart {
		packet[1] = 0x40 // payload_unit_start_indicator
	}
	packet[1] |= uint8((pid >> 8) & 0x1F) // PID高5位
	packet[2] = uint8(pid & 0xFF)         // PID低8位
	packet[3] = 0x10 | (cc & 0x0F)        // adaptation_field_control=payload only, continuity_counter

	// -----Adaptation-----------------------
	// adaptation_field_length
	// discontinuity_indicator
	// random_access_indicator
	// elementary_stream_priority_indicator 0
	// PCR_flag
	// OPCR_flag                            0
	// splicing_point_flag                  0
	// transport_private_data_flag          0
	// adaptation_field_extension_flag      0
	// program_clock_reference_base
	// reserved
	// program_clock_reference_extension
	// --------------------------------------
	var flags uint8
	if discontinuity {
		flags |= 0x80
	}
	if randomAccess {
		flags |= 0x40
	}
	pcrSize := 0
	if pcr != nil {
		flags |= 0x10
		pcrSize = 6
	}

	// afSize为整个Adaptation的大小，包括长度字节自身
	afSize := 0
	if flags != 0 {
		afSize = 2 + pcrSize
	}

	bodySize := packetBodySize - afSize
	if len(payload) < bodySize {
		// 剩余空间用Adaptation的0xFF填充占满
		stuffSize := bodySize - len(payload)
		if afSize == 0 && stuffSize == 1 {
			// 只放得下长度字节，adaptation_field_length为0
			afSize = 1
		} else if afSize == 0 {
			afSize = stuffSize
		} else {
			afSize += stuffSize
		}
		bodySize = len(payload)
	}

	wpos := 4
	if afSize > 0 {
		packet[3] |= 0x20 // adaptation_field_control 设置Adaptation
		packet[4] = uint8(afSize - 1)
		wpos++
		if afSize >= 2 {
			packet[5] = flags
			wpos++
		}
		if pcr != nil {
			packPcr(packet[6:], *pcr)
			wpos += 6
		}
		for ; wpos < 4+afSize; wpos++ {
			packet[wpos] = 0xFF
		}
	}

	copy(packet[wpos:], payload[:bodySize])

	if err := w.onTsPacket(packet); err != nil {
		return bodySize, err
	}
	return bodySize, nil
}

// ----- private -------------------------------------------------------------------------------------------------------

// program_clock_reference_base         [33b]
// reserved                             [6b]
// program_clock_reference_extension    [9b]
func packPcr(out []byte, pcr Pcr) {
	base := uint64(pcr) / 300
	ext := uint64(pcr) % 300
	out[0] = uint8(base >> 25)
	out[1] = uint8(base >> 17)
	out[2] = uint8(base >> 9)
	out[3] = uint8(base >> 1)
	out[4] = uint8(base<<7) | 0x7E | uint8(ext>>8)
	out[5] = uint8(ext)
}
