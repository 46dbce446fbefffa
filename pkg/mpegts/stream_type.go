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

// codec到TS侧打包参数的静态映射，注册新codec只需在这里加表项

type streamTypeEntry struct {
	streamType uint8
	streamId   uint8
	isVideo    bool
}

var streamTypeTable = map[base.AvPacketPt]streamTypeEntry{
	base.AvPacketPtAvc:     {StreamTypeAvc, StreamIdVideo, true},
	base.AvPacketPtHevc:    {StreamTypeHevc, StreamIdVideo, true},
	base.AvPacketPtAacAdts: {StreamTypeAacAdts, StreamIdAudio, false},
	base.AvPacketPtAacLatm: {StreamTypeAacLatm, StreamIdAudio, false},
	base.AvPacketPtOpus:    {StreamTypePrivateData, StreamIdPrivate, false},
}

func lookupStreamType(pt base.AvPacketPt) (streamTypeEntry, bool) {
	entry, ok := streamTypeTable[pt]
	return entry, ok
}

// PMT中每路流需要携带的descriptor
//
// Opus: registration("Opus")加DVB extension descriptor中的声道数扩展，共10字节
// HEVC: registration("HEVC")，共6字节
// 其他: 无，ES_info_length为0
func streamDescriptors(pt base.AvPacketPt) []Descriptor {
	switch pt {
	case base.AvPacketPtOpus:
		return []Descriptor{
			{
				Tag: DescriptorTagRegistration,
				Registration: DescriptorRegistration{
					FormatIdentifier: opusIdentifier,
				},
			},
			{
				Tag: DescriptorTagExtension,
				Extension: DescriptorExtension{
					Tag: opusChannelConfigExtensionTag,
					// TODO chef: 声道数从音频配置传入，当前固定双声道
					Data: []byte{2},
				},
			},
		}
	case base.AvPacketPtHevc:
		return []Descriptor{
			{
				Tag: DescriptorTagRegistration,
				Registration: DescriptorRegistration{
					FormatIdentifier: hevcIdentifier,
				},
			},
		}
	}
	return nil
}
