package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compress 用 zlib (最快级别) 压缩规范字节。磁盘和 S3 后端存的都是这个格式。
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// NewDecompressor wraps a compressed stream. Closing the result closes src too.
func NewDecompressor(src io.ReadCloser) (io.ReadCloser, error) {
	zr, err := zlib.NewReader(src)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	return &decompressor{zr: zr, src: src}, nil
}

type decompressor struct {
	zr  io.ReadCloser
	src io.ReadCloser
}

func (d *decompressor) Read(p []byte) (int, error) { return d.zr.Read(p) }

func (d *decompressor) Close() error {
	zerr := d.zr.Close()
	if err := d.src.Close(); err != nil {
		return err
	}
	return zerr
}
