// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/transform/glsltext"
)

// Transform runs a per-element parallel computation expressed as a
// kernel (vertex stage) program, consuming named inputs (buffer-backed
// attributes and/or texture-backed samples) and producing named
// outputs (captured buffers or a rendered texture), across iterations
// where each iteration's outputs become the next iteration's inputs.
//
// It maintains two parallel generations of all bindings: configuring a
// feedback map or a swap texture pre-wires the other generation so
// that [Transform.Swap] is a pure index flip. Callers must call Swap
// explicitly between iterations when ping-ponging is desired; Run
// never swaps implicitly.
type Transform struct {
	// gens are the two parallel generations of bindings.
	gens [2]generation

	// current is the index of the current generation, in {0,1}.
	current int

	// elementCount is the number of parallel elements per invocation.
	elementCount int

	// drawMode is the primitive topology for kernel invocations.
	drawMode DrawMode

	// feedbackMap maps source buffer names to output names.
	feedbackMap map[string]string

	// layouts are per-name layout overrides from [Binding.Layout].
	layouts map[string]BufferLayout

	// targetTextureVarying is the texture-routed output name.
	targetTextureVarying string

	// targetRefName is the source texture the target was cloned from.
	targetRefName string

	// targetClone is the registry-owned cloned target texture.
	targetClone Texture

	// swapTexture is the source texture name exchanged with the
	// target texture on Swap.
	swapTexture string

	// indexBuffer is the derived element-index buffer, built lazily
	// when any input or the output is texture-backed.
	indexBuffer Buffer

	// indexBuilt is the element count the index buffer was built for.
	indexBuilt int

	// indexIDs is the host staging slice for index buffer contents.
	indexIDs []float32

	registry registry
	rewriter ShaderRewriter
	device   Device
	program  Program
	released bool
}

// NewTransform constructs a Transform on the given device from the
// given configuration. The kernel vertex source (Config.VS) is
// required. All configuration errors are precondition violations:
// the instance is not usable and the caller must supply a corrected
// configuration.
func NewTransform(dev Device, cfg *Config) (*Transform, error) {
	if dev == nil {
		return nil, errors.Log(errors.New("transform.NewTransform: device is required"))
	}
	if cfg == nil || cfg.VS == "" {
		return nil, errors.Log(errors.New("transform.NewTransform: kernel vertex source (Config.VS) is required"))
	}
	if cfg.ElementCount < 0 {
		return nil, errors.Log(fmt.Errorf("transform.NewTransform: invalid ElementCount: %d", cfg.ElementCount))
	}
	tf := &Transform{
		device:       dev,
		elementCount: cfg.ElementCount,
		drawMode:     cfg.DrawMode,
		layouts:      make(map[string]BufferLayout),
	}
	tf.rewriter = cfg.Rewriter
	if tf.rewriter == nil {
		tf.rewriter = &glsltext.Rewriter{}
	}
	tf.gens[0].init()
	tf.gens[1].init()
	if err := tf.setupTextures(cfg); err != nil {
		return nil, err
	}
	if err := tf.setupBuffers(cfg); err != nil {
		return nil, err
	}
	if err := tf.createProgram(cfg); err != nil {
		return nil, err
	}
	if err := tf.ensureCaptures(); err != nil {
		return nil, err
	}
	if err := tf.ensureRenderTargets(); err != nil {
		return nil, err
	}
	if err := tf.ensureIndexBuffer(); err != nil {
		return nil, err
	}
	if Debug {
		slog.Debug("transform: configured", "elementCount", tf.elementCount,
			"feedbackMap", tf.feedbackMap, "swapTexture", tf.swapTexture,
			"targetTextureVarying", tf.targetTextureVarying)
	}
	return tf, nil
}

// createProgram builds the kernel program, rewriting the vertex source
// for texture-backed inputs first when the bridge is active.
func (tf *Transform) createProgram(cfg *Config) error {
	vs := cfg.VS
	if tf.bridgeActive() {
		names := slices.Sorted(maps.Keys(tf.cur().sourceTextures))
		rw, err := tf.rewriter.RewriteForTextures(vs, names, tf.targetTextureVarying)
		if errors.Log(err) != nil {
			return err
		}
		vs = rw
	}
	fs := cfg.FS
	if fs == "" && tf.targetTextureVarying != "" {
		// texture-routed output: synthesize a fragment stage that
		// writes the target varying to the color attachment
		pf, err := tf.rewriter.PassthroughFragment(cfg.VS, tf.targetTextureVarying)
		if errors.Log(err) != nil {
			return err
		}
		fs = pf
	}
	varyings := cfg.Varyings
	if len(varyings) == 0 {
		varyings = tf.deriveVaryings()
	}
	prog, err := tf.device.CreateProgram(&ProgramDescriptor{
		VS:       vs,
		FS:       fs,
		Varyings: varyings,
		Defines:  cfg.Defines,
		DrawMode: tf.drawMode,
	})
	if errors.Log(err) != nil {
		return err
	}
	tf.program = prog
	tf.program.SetVertexCount(tf.elementCount)
	return nil
}

// Update incrementally re-applies any subset of the configuration:
// buffers, textures, element count. Derived resources (element-index
// buffer, capture objects, render targets) are updated in place when
// compatible and replaced-and-released when not. The kernel source
// and varyings cannot be changed after construction.
func (tf *Transform) Update(cfg *Config) error {
	tf.checkLive()
	if cfg == nil {
		return nil
	}
	if cfg.ElementCount < 0 {
		return errors.Log(fmt.Errorf("transform.Update: invalid ElementCount: %d", cfg.ElementCount))
	}
	if cfg.ElementCount > 0 {
		tf.elementCount = cfg.ElementCount
		tf.program.SetVertexCount(tf.elementCount)
	}
	if err := tf.setupTextures(cfg); err != nil {
		return err
	}
	if err := tf.setupBuffers(cfg); err != nil {
		return err
	}
	if err := tf.ensureCaptures(); err != nil {
		return err
	}
	if err := tf.ensureRenderTargets(); err != nil {
		return err
	}
	return tf.ensureIndexBuffer()
}

// Run assembles the current generation's full input set and issues one
// kernel invocation over all elements, with the current generation's
// capture object bound so every configured feedback buffer receives
// its output stream. If a render target exists for the current
// generation, rasterized output is kept and the target's color
// contents are cleared first unless suppressed; otherwise rasterized
// output is discarded and no render target is touched.
func (tf *Transform) Run(cfg *RunConfig) error {
	tf.checkLive()
	if cfg == nil {
		cfg = &RunConfig{}
	}
	cur := tf.cur()
	attrs := make(map[string]Attribute, len(cur.sourceBuffers)+1)
	for name, buf := range cur.sourceBuffers {
		lay, ok := tf.layouts[name]
		if !ok {
			lay = buf.Layout()
		}
		attrs[name] = Attribute{Buffer: buf, Layout: lay}
	}
	var us map[string]any
	if tf.bridgeActive() {
		if err := tf.ensureIndexBuffer(); err != nil {
			return err
		}
		if tf.indexBuffer != nil { // nil with zero elements: nothing to address
			attrs[tf.rewriter.IndexAttribute()] = Attribute{
				Buffer: tf.indexBuffer,
				Layout: tf.indexBuffer.Layout(),
			}
		}
		us = tf.textureUniforms()
		// exact-texel addressing requires no interpolation or wraparound
		for _, tx := range cur.sourceTextures {
			tx.SetSampling(FilterNearest, WrapClampToEdge)
		}
	} else {
		us = make(map[string]any, len(cfg.Uniforms))
	}
	for k, v := range cfg.Uniforms {
		us[k] = v // caller values take precedence
	}
	tf.program.SetAttributes(attrs)
	opts := &TransformOptions{
		Capture:    cur.capture,
		Uniforms:   us,
		Parameters: cfg.Parameters,
	}
	if cur.renderTarget != nil {
		opts.RenderTarget = cur.renderTarget
		opts.ClearRenderTarget = !cfg.NoClear
	} else {
		opts.DiscardRaster = true
	}
	return errors.Log(tf.program.Transform(opts))
}

// Generation returns the current generation index, in {0,1}.
func (tf *Transform) Generation() int {
	return tf.current
}

// ElementCount returns the number of parallel elements per invocation.
func (tf *Transform) ElementCount() int {
	return tf.elementCount
}

// GetBuffer returns the current generation's feedback buffer of the
// given name, or nil if there is none.
func (tf *Transform) GetBuffer(name string) Buffer {
	tf.checkLive()
	return tf.cur().feedbackBuffers[name]
}

// GetFramebuffer returns the current generation's render target, or
// nil when no texture output is configured.
func (tf *Transform) GetFramebuffer() RenderTarget {
	tf.checkLive()
	return tf.cur().renderTarget
}

// ReadData returns the contents of the named feedback buffer, or, when
// no name is given (or the name is the texture-routed output name),
// the current generation's render target pixels. Reading back requires
// prior device work to complete and can stall the caller.
func (tf *Transform) ReadData(cfg *ReadConfig) ([]byte, error) {
	tf.checkLive()
	if cfg == nil {
		cfg = &ReadConfig{}
	}
	if cfg.Name != "" && cfg.Name != tf.targetTextureVarying {
		buf := tf.cur().feedbackBuffers[cfg.Name]
		if buf == nil {
			return nil, errors.Log(fmt.Errorf("transform.ReadData: %q is not a feedback buffer name", cfg.Name))
		}
		dst := make([]byte, buf.ByteLength())
		if err := errors.Log(buf.ReadData(dst)); err != nil {
			return nil, err
		}
		return dst, nil
	}
	rt := tf.cur().renderTarget
	if rt == nil {
		return nil, errors.Log(errors.New("transform.ReadData: no render target configured"))
	}
	px, err := rt.ReadPixels()
	if errors.Log(err) != nil {
		return nil, err
	}
	if !cfg.Packed {
		return px, nil
	}
	return packPixels(px, rt.Texture().Format()), nil
}

// packPixels repacks pixel data from the fixed 4 channel readback
// layout down to the channel count of the given format.
func packPixels(px []byte, tfm TextureFormat) []byte {
	ch := tfm.Channels
	if ch <= 0 || ch >= 4 {
		return px
	}
	cb := tfm.Type.Bytes()
	pxb := 4 * cb
	chb := ch * cb
	n := len(px) / pxb
	out := make([]byte, n*chb)
	for i := range n {
		copy(out[i*chb:(i+1)*chb], px[i*pxb:i*pxb+chb])
	}
	return out
}

// Release destroys every resource this instance created (auto feedback
// buffers, the element-index buffer, cloned target textures, render
// targets, capture objects) exactly once, then the kernel program.
// Caller-supplied buffers and textures are borrowed and not released.
// Any operation on the instance afterward panics.
func (tf *Transform) Release() {
	tf.checkLive()
	tf.registry.release()
	if tf.program != nil {
		tf.program.Release()
		tf.program = nil
	}
	tf.gens[0] = generation{}
	tf.gens[1] = generation{}
	tf.indexBuffer = nil
	tf.targetClone = nil
	tf.released = true
}

// checkLive panics if the instance has been released.
func (tf *Transform) checkLive() {
	if tf.released {
		panic("transform: operation on a released Transform")
	}
}
