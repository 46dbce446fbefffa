// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

type AvPacketPt int

const (
	AvPacketPtUnknown AvPacketPt = -1
	AvPacketPtAvc     AvPacketPt = 96
	AvPacketPtHevc    AvPacketPt = 98
	AvPacketPtAacAdts AvPacketPt = 97 // AAC裸流前带ADTS头
	AvPacketPtAacLatm AvPacketPt = 100
	AvPacketPtOpus    AvPacketPt = 101
)

// StreamHandle 由 mpegts.Muxer.AddStream 返回，WriteFrame 时用于定位目标流
type StreamHandle int

// AvPacket 一个完整的access unit
//
// 注意，Payload对Muxer是只读的，内存由调用方持有
type AvPacket struct {
	PayloadType AvPacketPt
	Pts         int64 // 单位微秒
	Dts         int64 // 单位微秒，-1表示没有独立的dts，与pts相同
	IsKeyFrame  bool
	Stream      StreamHandle
	Payload     []byte
}

func (a AvPacketPt) ReadableString() string {
	switch a {
	case AvPacketPtUnknown:
		return "unknown"
	case AvPacketPtAvc:
		return "avc"
	case AvPacketPtHevc:
		return "hevc"
	case AvPacketPtAacAdts:
		return "aac adts"
	case AvPacketPtAacLatm:
		return "aac latm"
	case AvPacketPtOpus:
		return "opus"
	}
	return ""
}
