// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"errors"
	"testing"

	"github.com/ThibaultBee/StreamPack-sub005/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

func newTestMuxer(t *testing.T, c *packetCollector, pts ...base.AvPacketPt) (*Muxer, []base.StreamHandle) {
	m := NewMuxer(c.onTsPacket)
	var handles []base.StreamHandle
	for _, pt := range pts {
		h, err := m.AddStream(pt)
		assert.Equal(t, nil, err)
		handles = append(handles, h)
	}
	assert.Equal(t, nil, m.Configure())
	return m, handles
}

func pidOf(packet []byte) uint16 {
	return ParseTsPacketHeader(packet).Pid
}

func TestMuxerScenario(t *testing.T) {
	var c packetCollector
	m := NewMuxer(c.onTsPacket)

	vh, err := m.AddStream(base.AvPacketPtAvc)
	assert.Equal(t, nil, err)
	ah, err := m.AddStream(base.AvPacketPtAacAdts)
	assert.Equal(t, nil, err)

	// PID从0x0100起依次分配
	assert.Equal(t, uint16(0x0100), m.registry.Streams()[0].Pid)
	assert.Equal(t, uint16(0x0101), m.registry.Streams()[1].Pid)

	assert.Equal(t, nil, m.Configure())
	assert.Equal(t, uint16(0x0100), m.registry.Service().PcrPid)

	err = m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAvc,
		Pts:         0,
		Dts:         0,
		IsKeyFrame:  true,
		Stream:      vh,
		Payload:     make([]byte, 100),
	})
	assert.Equal(t, nil, err)

	// SDT倒计时到期先发，随后关键帧强制重发PAT和PMT
	assert.Equal(t, 4, len(c.packets))
	assert.Equal(t, syncByte, c.packets[0][0])
	assert.Equal(t, PidSdt, pidOf(c.packets[0]))
	assert.Equal(t, PidPat, pidOf(c.packets[1]))
	assert.Equal(t, defaultPmtPid, pidOf(c.packets[2]))
	assert.Equal(t, uint16(0x0100), pidOf(c.packets[3]))

	// 种子值15，第一次递增后为0
	h := ParseTsPacketHeader(c.packets[3])
	assert.Equal(t, uint8(0), h.Cc)
	assert.Equal(t, uint8(1), h.PayloadUnitStart)

	// 关键帧首个packet携带PCR与random_access_indicator
	a := ParseTsPacketAdaptation(c.packets[3][4:])
	assert.Equal(t, uint8(1), a.PcrFlag)
	assert.Equal(t, uint8(1), a.RandomAccess)

	err = m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAacAdts,
		Pts:         21333,
		Dts:         -1,
		Stream:      ah,
		Payload:     make([]byte, 50),
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, len(c.packets))
	assert.Equal(t, uint16(0x0101), pidOf(c.packets[4]))
	assert.Equal(t, uint8(0), ParseTsPacketHeader(c.packets[4]).Cc)
}

func TestMuxerContinuityCounter(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAvc, base.AvPacketPtAacAdts)

	// 音视频交错写入，各自pid的counter独立递增
	for i := 0; i < 40; i++ {
		err := m.WriteFrame(base.AvPacket{
			PayloadType: base.AvPacketPtAvc,
			Pts:         int64(i) * 33333,
			Dts:         int64(i) * 33333,
			Stream:      handles[0],
			Payload:     make([]byte, 100),
		})
		assert.Equal(t, nil, err)
		err = m.WriteFrame(base.AvPacket{
			PayloadType: base.AvPacketPtAacAdts,
			Pts:         int64(i) * 21333,
			Dts:         -1,
			Stream:      handles[1],
			Payload:     make([]byte, 50),
		})
		assert.Equal(t, nil, err)
	}

	expected := map[uint16]uint8{0x0100: 0, 0x0101: 0}
	for _, packet := range c.packets {
		h := ParseTsPacketHeader(packet)
		want, ok := expected[h.Pid]
		if !ok {
			continue
		}
		assert.Equal(t, want, h.Cc)
		expected[h.Pid] = (want + 1) & 0x0F
	}
}

func TestMuxerPcrOncePerAccessUnit(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAvc, base.AvPacketPtAacAdts)

	// 跨多个packet的access unit
	err := m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAvc,
		Pts:         1000000,
		Dts:         966667,
		IsKeyFrame:  true,
		Stream:      handles[0],
		Payload:     make([]byte, 1000),
	})
	assert.Equal(t, nil, err)
	err = m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAacAdts,
		Pts:         1000000,
		Dts:         -1,
		Stream:      handles[1],
		Payload:     make([]byte, 500),
	})
	assert.Equal(t, nil, err)

	videoPackets := 0
	pcrCount := 0
	for _, packet := range c.packets {
		h := ParseTsPacketHeader(packet)
		if h.Pid == 0x0101 {
			// 非PCR流永远不带PCR
			if h.Adaptation&0x2 != 0 {
				a := ParseTsPacketAdaptation(packet[4:])
				assert.Equal(t, uint8(0), a.PcrFlag)
			}
			continue
		}
		if h.Pid != 0x0100 {
			continue
		}
		videoPackets++
		if h.Adaptation&0x2 != 0 {
			a := ParseTsPacketAdaptation(packet[4:])
			if a.PcrFlag == 1 {
				pcrCount++
				// 只允许出现在access unit的首个packet
				assert.Equal(t, uint8(1), h.PayloadUnitStart)
				// pcr = dts90k * 300
				assert.Equal(t, Pcr(966667*90/1000*300), a.Pcr)
			}
		}
	}
	assert.Equal(t, true, videoPackets > 1)
	assert.Equal(t, 1, pcrCount)
}

func TestMuxerPeriodicTables(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAacAdts)

	for i := 0; i < 1000; i++ {
		err := m.WriteFrame(base.AvPacket{
			PayloadType: base.AvPacketPtAacAdts,
			Pts:         int64(i) * 21333,
			Dts:         -1,
			Stream:      handles[0],
			Payload:     make([]byte, 50),
		})
		assert.Equal(t, nil, err)
	}

	lastPat := -1
	lastPmt := -1
	lastSdt := -1
	for i, packet := range c.packets {
		switch pidOf(packet) {
		case PidPat:
			if lastPat >= 0 {
				assert.Equal(t, true, i-lastPat <= defaultPatPeriod+3)
			}
			lastPat = i
		case defaultPmtPid:
			lastPmt = i
		case PidSdt:
			if lastSdt >= 0 {
				assert.Equal(t, true, i-lastSdt <= defaultSdtPeriod+3)
			}
			lastSdt = i
		}
	}
	assert.Equal(t, true, lastPat >= 0)
	assert.Equal(t, true, lastPmt >= 0)
	assert.Equal(t, true, lastSdt >= 0)
	// PMT紧跟PAT
	assert.Equal(t, lastPat+1, lastPmt)
}

func TestMuxerKeyFrameForcesTables(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAvc)

	for i := 0; i < 10; i++ {
		err := m.WriteFrame(base.AvPacket{
			PayloadType: base.AvPacketPtAvc,
			Pts:         int64(i) * 33333,
			Dts:         int64(i) * 33333,
			IsKeyFrame:  i%5 == 0,
			Stream:      handles[0],
			Payload:     make([]byte, 400),
		})
		assert.Equal(t, nil, err)
	}

	// 每个关键帧PES的首个packet前必须紧挨着PAT加PMT
	for i, packet := range c.packets {
		h := ParseTsPacketHeader(packet)
		if h.Pid != 0x0100 || h.PayloadUnitStart != 1 {
			continue
		}
		if h.Adaptation&0x2 == 0 {
			continue
		}
		a := ParseTsPacketAdaptation(packet[4:])
		if a.RandomAccess != 1 {
			continue
		}
		assert.Equal(t, true, i >= 2)
		assert.Equal(t, defaultPmtPid, pidOf(c.packets[i-1]))
		assert.Equal(t, PidPat, pidOf(c.packets[i-2]))
	}
}

func TestMuxerLargeAccessUnit(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAvc)

	// 单个access unit超过200个packet，表在PES的packet之间重发
	err := m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAvc,
		Pts:         33333,
		Dts:         33333,
		IsKeyFrame:  true,
		Stream:      handles[0],
		Payload:     make([]byte, 40000),
	})
	assert.Equal(t, nil, err)

	lastPat := -1
	lastSdt := -1
	cc := uint8(0)
	for i, packet := range c.packets {
		h := ParseTsPacketHeader(packet)
		switch h.Pid {
		case PidPat:
			if lastPat >= 0 {
				assert.Equal(t, true, i-lastPat <= defaultPatPeriod+2)
			}
			lastPat = i
		case PidSdt:
			if lastSdt >= 0 {
				assert.Equal(t, true, i-lastSdt <= defaultSdtPeriod+3)
			}
			lastSdt = i
		case 0x0100:
			// 插表不打断本pid的continuity_counter
			assert.Equal(t, cc, h.Cc)
			cc = (cc + 1) & 0x0F
		}
	}
	assert.Equal(t, true, lastPat >= 0)
	assert.Equal(t, true, lastSdt >= 0)
	// 40000字节约218个packet，PAT至少重发5次
	assert.Equal(t, true, len(c.packets) > 200)

	// PUSI只出现在PES的首个packet
	pusiCount := 0
	for _, packet := range c.packets {
		h := ParseTsPacketHeader(packet)
		if h.Pid == 0x0100 && h.PayloadUnitStart == 1 {
			pusiCount++
		}
	}
	assert.Equal(t, 1, pusiCount)
}

func TestMuxerTinyAccessUnit(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAacAdts)

	err := m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAacAdts,
		Pts:         0,
		Dts:         -1,
		Stream:      handles[0],
		Payload:     []byte{0xAB},
	})
	assert.Equal(t, nil, err)

	// 1字节access unit也产出一个完整packet，PES头14字节加1字节payload
	last := c.packets[len(c.packets)-1]
	assert.Equal(t, packetSize, len(last))
	assert.Equal(t, uint16(0x0100), pidOf(last))
	// adaptation_field_length = 184 - 15 - 1
	assert.Equal(t, uint8(168), last[4])
}

func TestMuxerReconfigure(t *testing.T) {
	var c packetCollector
	m, handles := newTestMuxer(t, &c, base.AvPacketPtAvc, base.AvPacketPtAacAdts)

	pat1 := append([]byte(nil), m.patSection...)
	pmt1 := append([]byte(nil), m.pmtSection...)
	sdt1 := append([]byte(nil), m.sdtSection...)

	err := m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAvc,
		Pts:         0,
		Dts:         0,
		IsKeyFrame:  true,
		Stream:      handles[0],
		Payload:     make([]byte, 100),
	})
	assert.Equal(t, nil, err)

	m.Stop()
	assert.Equal(t, base.ErrMuxerNotRunning, m.WriteFrame(base.AvPacket{Stream: handles[0]}))

	// 同一流集合重新configure，表内容逐字节一致
	assert.Equal(t, nil, m.Configure())
	assert.Equal(t, pat1, m.patSection)
	assert.Equal(t, pmt1, m.pmtSection)
	assert.Equal(t, sdt1, m.sdtSection)

	// continuity_counter回到种子值
	n := len(c.packets)
	err = m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAvc,
		Pts:         0,
		Dts:         0,
		IsKeyFrame:  true,
		Stream:      handles[0],
		Payload:     make([]byte, 100),
	})
	assert.Equal(t, nil, err)
	videoPacket := c.packets[n+3]
	h := ParseTsPacketHeader(videoPacket)
	assert.Equal(t, uint16(0x0100), h.Pid)
	assert.Equal(t, uint8(0), h.Cc)
	// 重启后的首个packet标记discontinuity
	a := ParseTsPacketAdaptation(videoPacket[4:])
	assert.Equal(t, uint8(1), a.Discontinuity)
}

func TestMuxerErrors(t *testing.T) {
	var c packetCollector

	// 没有注册流就configure
	m := NewMuxer(c.onTsPacket)
	assert.Equal(t, base.ErrMuxerNoStream, m.Configure())

	// 不支持的codec在AddStream即报错
	_, err := m.AddStream(base.AvPacketPt(42))
	assert.Equal(t, true, errors.Is(err, base.ErrUnsupportedCodec))

	// configure前写帧
	assert.Equal(t, base.ErrMuxerNotRunning, m.WriteFrame(base.AvPacket{}))

	h, err := m.AddStream(base.AvPacketPtAvc)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, m.Configure())

	// configure后流集合冻结
	_, err = m.AddStream(base.AvPacketPtAacAdts)
	assert.Equal(t, base.ErrMuxerFrozen, err)

	// 未知的流handle
	err = m.WriteFrame(base.AvPacket{Stream: base.StreamHandle(99)})
	assert.Equal(t, true, errors.Is(err, base.ErrMuxerUnknownStream))

	_ = h
}

type failingSink struct {
	err error
}

func (s *failingSink) onTsPacket(b []byte) error {
	return s.err
}

func TestMuxerSinkError(t *testing.T) {
	sink := &failingSink{err: errors.New("mock sink: rejected")}
	m := NewMuxer(sink.onTsPacket)
	h, err := m.AddStream(base.AvPacketPtAvc)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, m.Configure())

	// sink错误原样向上透出
	err = m.WriteFrame(base.AvPacket{
		PayloadType: base.AvPacketPtAvc,
		Pts:         0,
		Dts:         0,
		IsKeyFrame:  true,
		Stream:      h,
		Payload:     make([]byte, 100),
	})
	assert.Equal(t, sink.err, err)
}
