// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gldevice

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/transform"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Buffer is a GL buffer object.
type Buffer struct {
	id      uint32
	byteLen int
	usage   transform.BufferUsage
	layout  transform.BufferLayout
}

// CreateBuffer allocates a buffer object per the descriptor,
// uploading initial contents if given.
func (dv *Device) CreateBuffer(desc *transform.BufferDescriptor) (transform.Buffer, error) {
	n := desc.ByteLength
	if n == 0 {
		n = len(desc.Data)
	}
	if n == 0 {
		return nil, errors.Log(errors.New("gldevice: buffer needs a ByteLength or Data"))
	}
	bf := &Buffer{byteLen: n, usage: desc.Usage, layout: desc.Layout}
	gl.GenBuffers(1, &bf.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, bf.id)
	if len(desc.Data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, n, gl.Ptr(desc.Data), glUsage(desc.Usage))
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, n, nil, glUsage(desc.Usage))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if err := errors.Log(checkError("CreateBuffer")); err != nil {
		bf.Release()
		return nil, err
	}
	return bf, nil
}

func (bf *Buffer) ByteLength() int                { return bf.byteLen }
func (bf *Buffer) Usage() transform.BufferUsage   { return bf.usage }
func (bf *Buffer) Layout() transform.BufferLayout { return bf.layout }

// SetData replaces the leading len(data) bytes of the buffer contents.
func (bf *Buffer) SetData(data []byte) error {
	if len(data) > bf.byteLen {
		return errors.Log(fmt.Errorf("gldevice: SetData of %d bytes exceeds buffer length %d", len(data), bf.byteLen))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, bf.id)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return checkError("SetData")
}

// ReadData reads the first len(dst) bytes back to the host,
// synchronizing with pending device work.
func (bf *Buffer) ReadData(dst []byte) error {
	if len(dst) > bf.byteLen {
		return errors.Log(fmt.Errorf("gldevice: ReadData of %d bytes exceeds buffer length %d", len(dst), bf.byteLen))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, bf.id)
	gl.GetBufferSubData(gl.ARRAY_BUFFER, 0, len(dst), gl.Ptr(dst))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return checkError("ReadData")
}

func (bf *Buffer) Release() {
	if bf.id != 0 {
		gl.DeleteBuffers(1, &bf.id)
		bf.id = 0
	}
}
