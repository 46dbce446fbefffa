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
)

// Service 单节目模型，一个Muxer只有一个Service，配置完成后只读
type Service struct {
	Id           uint16
	Name         string
	ProviderName string
	ServiceType  uint8

	// PcrPid Configure时选定，首路视频流，没有视频则首路流
	PcrPid uint16
}

// Stream 一路elementary stream
//
// Pid在AddStream时分配，Muxer生命期内不变
type Stream struct {
	Handle      base.StreamHandle
	PayloadType base.AvPacketPt
	Pid         uint16
	StreamType  uint8
	Sid         uint8 // stream_id of PES Header
	IsVideo     bool

	// Cc continuity_counter of TS Header，内部先增后用
	Cc uint8

	// Discontinuity 置位时，该流的下一个packet携带discontinuity_indicator，随后自动清除
	Discontinuity bool
}

// ServiceRegistry 维护Service与其下所有Stream，负责PID分配与PCR流选择
type ServiceRegistry struct {
	service *Service
	streams []*Stream
	nextPid uint16
}

func NewServiceRegistry(service *Service) *ServiceRegistry {
	return &ServiceRegistry{
		service: service,
		nextPid: pidElementaryStreamFirst,
	}
}

// AddStream codec不在映射表内时立即失败，不会推迟到PMT编码时
func (r *ServiceRegistry) AddStream(pt base.AvPacketPt) (*Stream, error) {
	entry, ok := lookupStreamType(pt)
	if !ok {
		return nil, base.NewErrUnsupportedCodec(pt)
	}
	if r.nextPid > pidElementaryStreamLast {
		return nil, base.ErrMuxerPidExhausted
	}

	stream := &Stream{
		Handle:      base.StreamHandle(len(r.streams)),
		PayloadType: pt,
		Pid:         r.nextPid,
		StreamType:  entry.streamType,
		Sid:         entry.streamId,
		IsVideo:     entry.isVideo,
		Cc:          initialCc,
	}
	r.nextPid++
	r.streams = append(r.streams, stream)
	return stream, nil
}

// Configure 选定PCR流并冻结流集合，允许stop后重复调用
func (r *ServiceRegistry) Configure() error {
	if len(r.streams) == 0 {
		return base.ErrMuxerNoStream
	}

	r.service.PcrPid = r.streams[0].Pid
	for _, s := range r.streams {
		if s.IsVideo {
			r.service.PcrPid = s.Pid
			break
		}
	}
	return nil
}

func (r *ServiceRegistry) Service() *Service {
	return r.service
}

func (r *ServiceRegistry) Streams() []*Stream {
	return r.streams
}

func (r *ServiceRegistry) StreamByHandle(h base.StreamHandle) *Stream {
	if int(h) < 0 || int(h) >= len(r.streams) {
		return nil
	}
	return r.streams[int(h)]
}

// ResetStreams continuity_counter回到种子值，重新configure时调用
func (r *ServiceRegistry) ResetStreams(markDiscontinuity bool) {
	for _, s := range r.streams {
		s.Cc = initialCc
		s.Discontinuity = markDiscontinuity
	}
}
