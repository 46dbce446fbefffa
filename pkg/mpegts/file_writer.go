// Copyright 2024, Chef.  All rights reserved.
// https://github.com/ThibaultBee/StreamPack-sub005
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"os"

	"github.com/ThibaultBee/StreamPack-sub005/pkg/base"
)

// FileWriter 本地ts文件sink，OnTsPacket直接作为Muxer的回调使用
type FileWriter struct {
	fp *os.File
}

func (fw *FileWriter) Create(filename string) (err error) {
	fw.fp, err = os.Create(filename)
	return
}

func (fw *FileWriter) OnTsPacket(b []byte) (err error) {
	if fw.fp == nil {
		return base.ErrFileWriterNotOpened
	}
	_, err = fw.fp.Write(b)
	return
}

func (fw *FileWriter) Dispose() error {
	if fw.fp == nil {
		return base.ErrFileWriterNotOpened
	}
	return fw.fp.Close()
}

func (fw *FileWriter) Name() string {
	if fw.fp == nil {
		return ""
	}
	return fw.fp.Name()
}
