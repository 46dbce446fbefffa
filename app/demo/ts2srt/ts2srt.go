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
	"time"

	"github.com/ThibaultBee/StreamPack-sub005/pkg/base"
	"github.com/ThibaultBee/StreamPack-sub005/pkg/mpegts"
	"github.com/haivision/srtgo"
	log "github.com/q191201771/naza/pkg/nazalog"
)

// 合成音视频打包成MPEG-TS后以caller身份推到SRT listener
//
// 接收端可以用ffplay验证：
//   ffplay "srt://127.0.0.1:6001?mode=listener"

// SRT常用的荷载大小，7个TS packet
const chunkSize = 7 * 188

func main() {
	host, port, streamId := parseFlag()

	options := make(map[string]string)
	options["transtype"] = "live"
	if streamId != "" {
		options["streamid"] = streamId
	}

	socket := srtgo.NewSrtSocket(host, port, options)
	defer socket.Close()
	err := socket.Connect()
	log.Assert(nil, err)
	log.Infof("srt connect succ. addr=%s:%d", host, port)

	chunk := make([]byte, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		_, err := socket.Write(chunk)
		chunk = chunk[0:0]
		return err
	}

	muxer := mpegts.NewMuxer(func(b []byte) error {
		chunk = append(chunk, b...)
		if len(chunk) >= chunkSize {
			return flush()
		}
		return nil
	})

	videoStream, err := muxer.AddStream(base.AvPacketPtAvc)
	log.Assert(nil, err)
	audioStream, err := muxer.AddStream(base.AvPacketPtAacAdts)
	log.Assert(nil, err)

	err = muxer.Configure()
	log.Assert(nil, err)

	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	for i := 0; ; i++ {
		<-ticker.C
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

		err = flush()
		log.Assert(nil, err)
	}
}

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
	b[0] = 0xFF
	b[1] = 0xF1
	for j := 2; j < len(b); j++ {
		b[j] = uint8(i * j)
	}
	return b
}

func parseFlag() (string, uint16, string) {
	h := flag.String("h", "127.0.0.1", "specify srt listener host")
	p := flag.Int("p", 6001, "specify srt listener port")
	s := flag.String("s", "", "specify srt streamid")
	flag.Parse()
	if *p <= 0 || *p > 65535 {
		flag.Usage()
		os.Exit(1)
	}
	return *h, uint16(*p), *s
}
