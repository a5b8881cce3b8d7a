// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"fmt"
	"image"
)

// testDevice is an in-memory Device used to test the resource
// choreography without a GPU. Its programs run an optional kernel
// function over the bound attributes and write the results into the
// capture's buffers, mimicking transform feedback.
type testDevice struct {
	// kernel computes per-varying output streams from the input
	// attribute streams, over n elements.
	kernel func(attrs map[string][]float32, n int) map[string][]float32

	noCapture bool

	buffersCreated  int
	texturesCreated int
	programs        []*testProgram
}

func (d *testDevice) CanCapture() bool { return !d.noCapture }

func (d *testDevice) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	n := desc.ByteLength
	if n == 0 {
		n = len(desc.Data)
	}
	b := &testBuffer{data: make([]byte, n), usage: desc.Usage, layout: desc.Layout}
	copy(b.data, desc.Data)
	d.buffersCreated++
	return b, nil
}

func (d *testDevice) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	format := desc.Format
	if format.Channels == 0 {
		format.Defaults()
	}
	d.texturesCreated++
	return &testTexture{size: desc.Size, format: format, filter: desc.Filter,
		wrap: desc.Wrap, flipY: desc.FlipY}, nil
}

func (d *testDevice) CreateRenderTarget(tex Texture) (RenderTarget, error) {
	return &testRenderTarget{tex: tex.(*testTexture)}, nil
}

func (d *testDevice) CreateCapture(prog Program, buffers map[string]Buffer) (Capture, error) {
	cp := &testCapture{}
	if err := cp.SetBuffers(buffers); err != nil {
		return nil, err
	}
	return cp, nil
}

func (d *testDevice) CreateProgram(desc *ProgramDescriptor) (Program, error) {
	p := &testProgram{dev: d, desc: *desc}
	d.programs = append(d.programs, p)
	return p, nil
}

// newTestBuffer makes a buffer holding the given float32 values.
func newTestBuffer(d *testDevice, vals []float32, size int) *testBuffer {
	buf, _ := d.CreateBuffer(&BufferDescriptor{
		Usage:  StaticDraw,
		Layout: BufferLayout{Type: Float32, Size: size},
		Data:   ToBytes(vals),
	})
	return buf.(*testBuffer)
}

type testBuffer struct {
	data     []byte
	usage    BufferUsage
	layout   BufferLayout
	released int
}

func (b *testBuffer) ByteLength() int      { return len(b.data) }
func (b *testBuffer) Usage() BufferUsage   { return b.usage }
func (b *testBuffer) Layout() BufferLayout { return b.layout }
func (b *testBuffer) Release()             { b.released++ }

func (b *testBuffer) SetData(data []byte) error {
	if len(data) > len(b.data) {
		return fmt.Errorf("testBuffer: data too large")
	}
	copy(b.data, data)
	return nil
}

func (b *testBuffer) ReadData(dst []byte) error {
	copy(dst, b.data)
	return nil
}

func (b *testBuffer) floats() []float32 { return FromBytes[float32](b.data) }

type testTexture struct {
	size     image.Point
	format   TextureFormat
	filter   FilterMode
	wrap     WrapMode
	flipY    bool
	released int
}

func (t *testTexture) Size() image.Point     { return t.size }
func (t *testTexture) Format() TextureFormat { return t.format }
func (t *testTexture) Release()              { t.released++ }

func (t *testTexture) SetSampling(filter FilterMode, wrap WrapMode) {
	t.filter = filter
	t.wrap = wrap
}

type testRenderTarget struct {
	tex      *testTexture
	pixels   []byte // fixed 4 channel readback layout
	clears   int
	draws    int
	released int
}

func (rt *testRenderTarget) Texture() Texture { return rt.tex }
func (rt *testRenderTarget) Release()         { rt.released++ }

func (rt *testRenderTarget) SetTexture(tex Texture) error {
	rt.tex = tex.(*testTexture)
	return nil
}

func (rt *testRenderTarget) ReadPixels() ([]byte, error) {
	out := make([]byte, len(rt.pixels))
	copy(out, rt.pixels)
	return out, nil
}

type testCapture struct {
	buffers  map[string]Buffer
	setCalls int
	released int
}

func (c *testCapture) Release() { c.released++ }

func (c *testCapture) SetBuffers(buffers map[string]Buffer) error {
	for name, buf := range buffers {
		if _, ok := buf.(*testBuffer); !ok {
			return fmt.Errorf("testCapture: %q is not a buffer", name)
		}
	}
	c.buffers = buffers
	c.setCalls++
	return nil
}

type testProgram struct {
	dev         *testDevice
	desc        ProgramDescriptor
	attrs       map[string]Attribute
	vertexCount int
	runs        []*TransformOptions
	released    int
}

func (p *testProgram) SetAttributes(attrs map[string]Attribute) { p.attrs = attrs }
func (p *testProgram) SetVertexCount(n int)                     { p.vertexCount = n }
func (p *testProgram) Release()                                 { p.released++ }

func (p *testProgram) Transform(opts *TransformOptions) error {
	p.runs = append(p.runs, opts)
	if opts.RenderTarget != nil {
		rt := opts.RenderTarget.(*testRenderTarget)
		rt.draws++
		if opts.ClearRenderTarget {
			rt.clears++
		}
	}
	if p.dev.kernel == nil || opts.Capture == nil {
		return nil
	}
	in := make(map[string][]float32, len(p.attrs))
	for name, at := range p.attrs {
		in[name] = at.Buffer.(*testBuffer).floats()
	}
	out := p.dev.kernel(in, p.vertexCount)
	cp := opts.Capture.(*testCapture)
	for name, vals := range out {
		buf, ok := cp.buffers[name]
		if !ok {
			continue
		}
		if err := buf.SetData(ToBytes(vals)); err != nil {
			return err
		}
	}
	return nil
}

// lastRun returns the options of the most recent Transform call.
func (p *testProgram) lastRun() *TransformOptions {
	if len(p.runs) == 0 {
		return nil
	}
	return p.runs[len(p.runs)-1]
}
