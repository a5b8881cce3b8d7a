// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gldevice implements the cogentcore.org/transform device
// interfaces on OpenGL (github.com/go-gl/gl): linear buffers, 2D
// textures, framebuffer render targets, transform feedback capture
// objects, and vertex-stage kernel programs.
//
// A current OpenGL context is required on the calling goroutine for
// NewDevice and for every operation afterward; context and window
// management (e.g., glfw) is the caller's concern.
package gldevice

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/transform"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Device creates GPU primitives on the current OpenGL context.
type Device struct {
	// Version is the reported GL_VERSION string.
	Version string
}

// NewDevice initializes the OpenGL bindings on the current context
// and returns a Device. There must be a current context.
func NewDevice() (*Device, error) {
	if err := gl.Init(); errors.Log(err) != nil {
		return nil, err
	}
	dv := &Device{Version: gl.GoStr(gl.GetString(gl.VERSION))}
	return dv, nil
}

// CanCapture reports whether capture objects (transform feedback)
// are supported. They are core since OpenGL 3.0, which this binding
// requires, so this is true for any initialized device.
func (dv *Device) CanCapture() bool {
	return true
}

func glUsage(us transform.BufferUsage) uint32 {
	switch us {
	case transform.DynamicDraw:
		return gl.DYNAMIC_DRAW
	case transform.StreamCopy:
		return gl.STREAM_COPY
	default:
		return gl.STATIC_DRAW
	}
}

func glType(dt transform.DataType) uint32 {
	switch dt {
	case transform.Int32:
		return gl.INT
	case transform.Uint32:
		return gl.UNSIGNED_INT
	case transform.Uint8:
		return gl.UNSIGNED_BYTE
	default:
		return gl.FLOAT
	}
}

func glDrawMode(dm transform.DrawMode) uint32 {
	switch dm {
	case transform.DrawLines:
		return gl.LINES
	case transform.DrawTriangles:
		return gl.TRIANGLES
	default:
		return gl.POINTS
	}
}

// checkError returns the pending GL error, if any, tagged with the
// operation that produced it.
func checkError(op string) error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	return fmt.Errorf("gldevice: %s: GL error 0x%04x", op, code)
}
