// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- pkg/mpegts ----------------------------------------------------------------------------------------------------

// 配置类错误，Configure失败后不允许写入帧
var (
	ErrMuxerNoStream     = errors.New("streampack.mpegts: no stream registered")
	ErrMuxerFrozen       = errors.New("streampack.mpegts: stream set frozen after configure")
	ErrMuxerNotRunning   = errors.New("streampack.mpegts: muxer has not been configured yet")
	ErrMuxerPidExhausted = errors.New("streampack.mpegts: elementary pid space exhausted")
)

// 单帧错误，只影响当前帧
var ErrMuxerUnknownStream = errors.New("streampack.mpegts: unknown stream")

var (
	ErrUnsupportedCodec = errors.New("streampack.mpegts: codec not supported by ts muxer")
	ErrSectionTooLong   = errors.New("streampack.mpegts: psi section exceeds private section cap")
)

var ErrFileWriterNotOpened = errors.New("streampack.mpegts: file writer has not been opened yet")

func NewErrMuxerUnknownStream(h StreamHandle) error {
	return fmt.Errorf("%w. handle=%d", ErrMuxerUnknownStream, h)
}

func NewErrUnsupportedCodec(pt AvPacketPt) error {
	return fmt.Errorf("%w. payloadType=%d", ErrUnsupportedCodec, pt)
}

func NewErrSectionTooLong(tableId uint8, length int) error {
	return fmt.Errorf("%w. tableId=%d, length=%d", ErrSectionTooLong, tableId, length)
}
