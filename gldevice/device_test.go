// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gldevice

import (
	"runtime"
	"testing"

	"cogentcore.org/transform"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	runtime.LockOSThread()
}

// newTestContext makes a hidden-window GL context for the calling test.
func newTestContext(t *testing.T) *Device {
	require.NoError(t, glfw.Init())
	t.Cleanup(glfw.Terminate)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	win, err := glfw.CreateWindow(16, 16, "test", nil, nil)
	require.NoError(t, err)
	win.MakeContextCurrent()
	dev, err := NewDevice()
	require.NoError(t, err)
	return dev
}

func TestGLPingPong(t *testing.T) {
	t.Skip("Need software GPU on CI")
	dev := newTestContext(t)
	assert.True(t, transform.IsSupported(dev))

	pos, err := dev.CreateBuffer(&transform.BufferDescriptor{
		Usage:  transform.DynamicDraw,
		Layout: transform.BufferLayout{Type: transform.Float32, Size: 1},
		Data:   transform.ToBytes([]float32{0, 1, 2, 3}),
	})
	require.NoError(t, err)
	defer pos.Release()

	tf, err := transform.NewTransform(dev, &transform.Config{
		VS: `#version 410
in float pos;
out float nextPos;
void main() {
	nextPos = pos + 1.0;
}
`,
		ElementCount:  4,
		SourceBuffers: map[string]transform.Binding{"pos": transform.Bind(pos)},
		FeedbackMap:   map[string]string{"pos": "nextPos"},
	})
	require.NoError(t, err)
	defer tf.Release()

	require.NoError(t, tf.Run(nil))
	out, err := tf.ReadData(&transform.ReadConfig{Name: "nextPos"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, transform.FromBytes[float32](out))

	tf.Swap()
	require.NoError(t, tf.Run(nil))
	out, err = tf.ReadData(&transform.ReadConfig{Name: "nextPos"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 4, 5}, transform.FromBytes[float32](out))
}
