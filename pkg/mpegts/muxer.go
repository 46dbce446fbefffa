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
	"github.com/q191201771/naza/pkg/unique"
)

type MuxerOption struct {
	PmtPid uint16

	// 每N个packet重发一次对应的表，计数包含所有PID的packet
	PatPeriod int
	SdtPeriod int

	TransportStreamId uint16
	OriginalNetworkId uint16

	ServiceId           uint16
	ServiceName         string
	ServiceProviderName string
	ServiceType         uint8
}

var defaultMuxerOption = MuxerOption{
	PmtPid:              defaultPmtPid,
	PatPeriod:           defaultPatPeriod,
	SdtPeriod:           defaultSdtPeriod,
	TransportStreamId:   defaultTransportStreamId,
	OriginalNetworkId:   defaultOriginalNetworkId,
	ServiceId:           defaultServiceId,
	ServiceName:         "Service01",
	ServiceProviderName: "StreamPack",
	ServiceType:         serviceTypeDigitalTelevision,
}

type ModMuxerOption func(option *MuxerOption)

// muxerState Muxer独占的可变状态，Stop后Configure时整体回到种子值
type muxerState struct {
	// 倒数到0或以下时，写下一帧前先重发对应的表
	patCountdown int
	sdtCountdown int

	// 表PID各自的continuity_counter
	patCc uint8
	pmtCc uint8
	sdtCc uint8
}

// Muxer 把一路音视频access unit序列打包成单节目的MPEG-TS流
//
// 输出是一连串固定188字节的packet，经onTsPacket逐个回调给调用方。
//
// 非并发安全。音频和视频往往来自两个编码线程，调用方需要先把
// WriteFrame串行化（dispatcher或锁均可），内部不做任何同步。
//
// 注意，continuity_counter在组装packet时先行递增，sink写失败不回滚，
// 所以失败重试不具备幂等性，重试同一帧会产生counter跳变。
type Muxer struct {
	UniqueKey string

	option   MuxerOption
	registry *ServiceRegistry
	writer   *TsPacketWriter
	state    muxerState

	running        bool
	everConfigured bool

	patSection []byte
	pmtSection []byte
	sdtSection []byte

	pesHeader [19]byte
	pesOut    []byte
}

func NewMuxer(onTsPacket OnTsPacket, modOptions ...ModMuxerOption) *Muxer {
	uk := unique.GenUniqueKey("TSMUXER")
	option := defaultMuxerOption
	for _, fn := range modOptions {
		fn(&option)
	}
	Log.Infof("[%s] lifecycle new ts muxer. option=%+v", uk, option)

	pesOut := make([]byte, 256*1024)
	pesOut = pesOut[0:0]
	return &Muxer{
		UniqueKey: uk,
		option:    option,
		registry: NewServiceRegistry(&Service{
			Id:           option.ServiceId,
			Name:         option.ServiceName,
			ProviderName: option.ServiceProviderName,
			ServiceType:  option.ServiceType,
		}),
		writer: NewTsPacketWriter(onTsPacket),
		pesOut: pesOut,
	}
}

// AddStream 注册一路流，返回的handle用于AvPacket.Stream
//
// 只允许在Configure前调用。codec不支持时这里立即报错，不会拖到写帧时
func (m *Muxer) AddStream(pt base.AvPacketPt) (base.StreamHandle, error) {
	if m.running {
		return -1, base.ErrMuxerFrozen
	}
	stream, err := m.registry.AddStream(pt)
	if err != nil {
		return -1, err
	}
	Log.Infof("[%s] add stream. payloadType=%s, pid=%#x", m.UniqueKey, pt.ReadableString(), stream.Pid)
	return stream.Handle, nil
}

// Configure 选定PCR流，编码好三张表，此后可以写入帧
//
// 失败时不破坏已注册的流，修正问题后可以重试。
// Stop后允许再次Configure，continuity_counter与重发倒计时回到种子值，
// 相同流集合下重新编码出的PAT/PMT/SDT字节完全一致
func (m *Muxer) Configure() error {
	if m.running {
		return base.ErrMuxerFrozen
	}
	if err := m.registry.Configure(); err != nil {
		return err
	}
	if err := m.buildSections(); err != nil {
		return err
	}

	m.registry.ResetStreams(m.everConfigured)
	m.state = muxerState{
		patCc: initialCc,
		pmtCc: initialCc,
		sdtCc: initialCc,
	}
	m.running = true
	m.everConfigured = true
	Log.Infof("[%s] configure done. pcrPid=%#x, streams=%d", m.UniqueKey, m.registry.Service().PcrPid, len(m.registry.Streams()))
	return nil
}

// WriteFrame 打包一个access unit
//
// @param pkt: pkt.Pts, pkt.Dts单位微秒，内部换算到90kHz；
//             pkt.Payload调用结束后内部不再持有。
//
// 时间戳必须按流内单调不减传入，B帧重排是编码器的事，这里不做
func (m *Muxer) WriteFrame(pkt base.AvPacket) error {
	if !m.running {
		return base.ErrMuxerNotRunning
	}
	stream := m.registry.StreamByHandle(pkt.Stream)
	if stream == nil {
		return base.NewErrMuxerUnknownStream(pkt.Stream)
	}

	// 微秒转90kHz
	pts := uint64(pkt.Pts) * 90 / 1000
	dts := pts
	if pkt.Dts >= 0 {
		dts = uint64(pkt.Dts) * 90 / 1000
	}

	// SDT先于PAT+PMT，保证PAT+PMT总是紧挨着关键帧PES
	if m.state.sdtCountdown <= 0 {
		if err := m.writeSdt(); err != nil {
			return err
		}
	}
	// 视频关键帧前强制重发PAT+PMT，保证每个关键帧都是随机接入点
	if pkt.IsKeyFrame && stream.IsVideo {
		if err := m.writePatPmt(); err != nil {
			return err
		}
	} else if m.state.patCountdown <= 0 {
		if err := m.writePatPmt(); err != nil {
			return err
		}
	}

	return m.writePes(stream, pkt, pts, dts)
}

// Stop 停止产出packet并冻结写入，已注册的流保留，可重新Configure
func (m *Muxer) Stop() {
	if !m.running {
		return
	}
	Log.Infof("[%s] lifecycle stop ts muxer.", m.UniqueKey)
	m.running = false
}

// ----- private -------------------------------------------------------------------------------------------------------

// 三张表一起重建
func (m *Muxer) buildSections() error {
	service := m.registry.Service()

	pat := &Pat{
		TransportStreamId: m.option.TransportStreamId,
		ProgramElements: []PatProgramElement{
			{ProgramNumber: service.Id, PmtPid: m.option.PmtPid},
		},
	}

	pmt := &Pmt{
		ProgramNumber: service.Id,
		PcrPid:        service.PcrPid,
	}
	for _, s := range m.registry.Streams() {
		pmt.ProgramElements = append(pmt.ProgramElements, PmtProgramElement{
			StreamType:  s.StreamType,
			Pid:         s.Pid,
			Descriptors: streamDescriptors(s.PayloadType),
		})
	}

	sdt := &Sdt{
		TransportStreamId: m.option.TransportStreamId,
		OriginalNetworkId: m.option.OriginalNetworkId,
		ServiceElements: []SdtServiceElement{
			{
				ServiceId:    service.Id,
				ServiceType:  service.ServiceType,
				ProviderName: service.ProviderName,
				Name:         service.Name,
			},
		},
	}

	// 流集合Configure后冻结，表内容不再变化，version_number恒为0，
	// 重新Configure产出的section逐字节一致
	var err error
	if m.patSection, err = PackSection(pat, 0); err != nil {
		return err
	}
	if m.pmtSection, err = PackSection(pmt, 0); err != nil {
		return err
	}
	if m.sdtSection, err = PackSection(sdt, 0); err != nil {
		return err
	}
	return nil
}

func (m *Muxer) writePatPmt() error {
	if err := m.writeSection(PidPat, m.patSection, &m.state.patCc); err != nil {
		return err
	}
	if err := m.writeSection(m.option.PmtPid, m.pmtSection, &m.state.pmtCc); err != nil {
		return err
	}
	m.state.patCountdown = m.option.PatPeriod
	return nil
}

func (m *Muxer) writeSdt() error {
	if err := m.writeSection(PidSdt, m.sdtSection, &m.state.sdtCc); err != nil {
		return err
	}
	m.state.sdtCountdown = m.option.SdtPeriod
	return nil
}

// 把编码好的section切割进TS packet，只有首个packet置payload_unit_start_indicator
func (m *Muxer) writeSection(pid uint16, section []byte, cc *uint8) error {
	b := section
	first := true
	for len(b) > 0 {
		*cc = (*cc + 1) & 0x0F
		n, err := m.writer.WritePacket(pid, b, first, *cc, false, false, nil)
		m.countPacket()
		if err != nil {
			return err
		}
		b = b[n:]
		first = false
	}
	return nil
}

// PES Header加access unit整体切割进TS packet
//
// PCR流上每个access unit只在其首个packet写一次PCR，取值dts*300。
// access unit跨越重发周期时在packet之间插表，周期上限与帧大小无关
func (m *Muxer) writePes(stream *Stream, pkt base.AvPacket, pts uint64, dts uint64) error {
	headerLen := packPesHeader(m.pesHeader[:], stream.Sid, len(pkt.Payload), pts, dts)

	b := m.pesOut[0:0]
	b = append(b, m.pesHeader[:headerLen]...)
	b = append(b, pkt.Payload...)
	m.pesOut = b[0:0]

	first := true
	for len(b) > 0 {
		// 首个packet前的表由WriteFrame负责，保证关键帧PES紧挨着PAT+PMT
		if !first {
			if m.state.sdtCountdown <= 0 {
				if err := m.writeSdt(); err != nil {
					return err
				}
			}
			if m.state.patCountdown <= 0 {
				if err := m.writePatPmt(); err != nil {
					return err
				}
			}
		}

		stream.Cc = (stream.Cc + 1) & 0x0F

		var pcr *Pcr
		if first && stream.Pid == m.registry.Service().PcrPid {
			p := Pcr(dts * 300)
			pcr = &p
		}
		discontinuity := stream.Discontinuity
		stream.Discontinuity = false

		n, err := m.writer.WritePacket(stream.Pid, b, first, stream.Cc, discontinuity, first && pkt.IsKeyFrame, pcr)
		m.countPacket()
		if err != nil {
			return err
		}
		b = b[n:]
		first = false
	}
	return nil
}

func (m *Muxer) countPacket() {
	m.state.patCountdown--
	m.state.sdtCountdown--
}
