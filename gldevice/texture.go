// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gldevice

import (
	"fmt"
	"image"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/transform"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Texture is a GL 2D texture object.
type Texture struct {
	id     uint32
	size   image.Point
	format transform.TextureFormat
}

// glTexFormat returns the (internalFormat, format, type) triple for
// the given pixel format. Uint8 and Float32 components are supported.
func glTexFormat(tf transform.TextureFormat) (int32, uint32, uint32, error) {
	var internal int32
	var format uint32
	switch tf.Type {
	case transform.Uint8:
		switch tf.Channels {
		case 1:
			internal, format = gl.R8, gl.RED
		case 2:
			internal, format = gl.RG8, gl.RG
		case 3:
			internal, format = gl.RGB8, gl.RGB
		case 4:
			internal, format = gl.RGBA8, gl.RGBA
		}
	case transform.Float32:
		switch tf.Channels {
		case 1:
			internal, format = gl.R32F, gl.RED
		case 2:
			internal, format = gl.RG32F, gl.RG
		case 3:
			internal, format = gl.RGB32F, gl.RGB
		case 4:
			internal, format = gl.RGBA32F, gl.RGBA
		}
	}
	if internal == 0 {
		return 0, 0, 0, fmt.Errorf("gldevice: unsupported texture format: %d channels of type %d", tf.Channels, tf.Type)
	}
	return internal, format, glType(tf.Type), nil
}

// CreateTexture allocates a 2D texture per the descriptor, uploading
// initial pixel contents if given. FlipY flips the initial contents
// vertically on upload.
func (dv *Device) CreateTexture(desc *transform.TextureDescriptor) (transform.Texture, error) {
	sz := desc.Size
	if sz.X <= 0 || sz.Y <= 0 {
		return nil, errors.Log(fmt.Errorf("gldevice: invalid texture size %v", sz))
	}
	format := desc.Format
	if format.Channels == 0 {
		format.Defaults()
	}
	internal, pixFmt, pixType, err := glTexFormat(format)
	if errors.Log(err) != nil {
		return nil, err
	}
	tx := &Texture{size: sz, format: format}
	gl.GenTextures(1, &tx.id)
	gl.BindTexture(gl.TEXTURE_2D, tx.id)
	data := desc.Data
	if len(data) > 0 && desc.FlipY {
		data = flipRows(data, sz, format.PixelBytes())
	}
	if len(data) > 0 {
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(sz.X), int32(sz.Y), 0, pixFmt, pixType, gl.Ptr(data))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(sz.X), int32(sz.Y), 0, pixFmt, pixType, nil)
	}
	setSampling(desc.Filter, desc.Wrap)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := errors.Log(checkError("CreateTexture")); err != nil {
		tx.Release()
		return nil, err
	}
	return tx, nil
}

func (tx *Texture) Size() image.Point               { return tx.size }
func (tx *Texture) Format() transform.TextureFormat { return tx.format }

// SetSampling sets the filter and wrap parameters on the texture.
func (tx *Texture) SetSampling(filter transform.FilterMode, wrap transform.WrapMode) {
	gl.BindTexture(gl.TEXTURE_2D, tx.id)
	setSampling(filter, wrap)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func setSampling(filter transform.FilterMode, wrap transform.WrapMode) {
	fl := int32(gl.NEAREST)
	if filter == transform.FilterLinear {
		fl = gl.LINEAR
	}
	wr := int32(gl.CLAMP_TO_EDGE)
	if wrap == transform.WrapRepeat {
		wr = gl.REPEAT
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, fl)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, fl)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wr)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wr)
}

func (tx *Texture) Release() {
	if tx.id != 0 {
		gl.DeleteTextures(1, &tx.id)
		tx.id = 0
	}
}

// flipRows returns the pixel rows of data in reverse vertical order.
func flipRows(data []byte, sz image.Point, pixBytes int) []byte {
	rb := sz.X * pixBytes
	out := make([]byte, len(data))
	for y := 0; y < sz.Y; y++ {
		copy(out[y*rb:(y+1)*rb], data[(sz.Y-1-y)*rb:(sz.Y-y)*rb])
	}
	return out
}
