// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"os"

	"github.com/ThibaultBee/StreamPack-sub005/pkg/base"
	"github.com/ThibaultBee/StreamPack-sub005/pkg/mpegts"
	log "github.com/q191201771/naza/pkg/nazalog"
)

// 生成一段合成音视频的MPEG-TS文件，用于快速验证打包输出
//
// 视频按30fps合成AVC access unit，每秒一个关键帧；音频按AAC ADTS合成

func main() {
	outFileName, frameNum := parseFlag()

	var fw mpegts.FileWriter
	err := fw.Create(outFileName)
	log.Assert(nil, err)
	defer fw.Dispose()
	log.Infof("open ts file succ. filename=%s", fw.Name())

	muxer := mpegts.NewMuxer(fw.OnTsPacket)

	videoStream, err := muxer.AddStream(base.AvPacketPtAvc)
	log.Assert(nil, err)
	audioStream, err := muxer.AddStream(base.AvPacketPtAacAdts)
	log.Assert(nil, err)

	err = muxer.Configure()
	log.Assert(nil, err)

	for i := 0; i < frameNum; i++ {
		pts := int64(i) * 1000000 / 30

		err = muxer.WriteFrame(base.AvPacket{
			PayloadType: base.AvPacketPtAvc,
			Pts:         pts,
			Dts:         pts,
			IsKeyFrame:  i%30 == 0,
			Stream:      videoStream,
			Payload:     makeVideoPayload(i),
		})
		log.Assert(nil, err)

		err = muxer.WriteFrame(base.AvPacket{
			PayloadType: base.AvPacketPtAacAdts,
			Pts:         pts,
			Dts:         -1,
			Stream:      audioStream,
			Payload:     makeAudioPayload(i),
		})
		log.Assert(nil, err)
	}

	muxer.Stop()
	log.Infof("done. frames=%d", frameNum)
}

// 合成的annex-b风格荷载，内容无意义，只求结构上像一个access unit
func makeVideoPayload(i int) []byte {
	b := make([]byte, 4096)
	b[0], b[1], b[2], b[3] = 0x00, 0x00, 0x00, 0x01
	for j := 4; j < len(b); j++ {
		b[j] = uint8(i + j)
	}
	return b
}

func makeAudioPayload(i int) []byte {
	b := make([]byte, 256)
	// ADTS syncword
	b[0] = 0xFF
	b[1] = 0xF1
	for j := 2; j < len(b); j++ {
		b[j] = uint8(i * j)
	}
	return b
}

func parseFlag() (string, int) {
	o := flag.String("o", "", "specify output ts file")
	n := flag.Int("n", 300, "specify frame num")
	flag.Parse()
	if *o == "" {
		flag.Usage()
		os.Exit(1)
	}
	return *o, *n
}
