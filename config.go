// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

// Binding associates a buffer with an optional layout override,
// replacing duck typing between a raw buffer and a wrapper object:
// set Buffer alone to use the buffer's own layout, or set Layout
// to read the buffer with a different element layout.
type Binding struct {
	// Buffer is the underlying device buffer. Required.
	Buffer Buffer

	// Layout overrides the buffer's own layout for attribute reads,
	// if non-nil.
	Layout *BufferLayout
}

// Bind returns a Binding using the buffer's own layout.
func Bind(buf Buffer) Binding {
	return Binding{Buffer: buf}
}

// buffer always yields the underlying buffer handle.
func (b Binding) buffer() Buffer {
	return b.Buffer
}

// Config is the configuration surface for [NewTransform] and
// [Transform.Update]. For Update, nil maps and zero fields mean
// "leave unchanged"; only the provided subset is re-applied.
type Config struct {
	// VS is the kernel vertex stage source. Required at construction;
	// cannot be changed by Update.
	VS string

	// FS is an optional fragment stage source, passed through to the
	// program builder (a passthrough stage is synthesized if empty).
	FS string

	// Varyings is the ordered list of captured output names.
	// If empty, it is derived from the FeedbackMap destinations
	// (sorted by source name), excluding the texture-routed output.
	Varyings []string

	// Defines are preprocessor definitions passed through to the
	// program builder.
	Defines map[string]string

	// SourceBuffers are the named per-element inputs.
	SourceBuffers map[string]Binding

	// FeedbackBuffers are explicitly supplied named outputs.
	// Outputs named by FeedbackMap but absent here are auto-created
	// matching the layout of their mapped source.
	FeedbackBuffers map[string]Binding

	// FeedbackMap maps a source buffer name to the output name whose
	// captured values should feed that source on the next generation.
	// Its presence is what triggers feedback buffer auto-creation and
	// cross-generation buffer aliasing. A destination name equal to
	// TargetTextureVarying is texture-routed: it is excluded from
	// buffer aliasing and no feedback buffer is created for it.
	FeedbackMap map[string]string

	// SourceTextures are named 2D texture inputs. The shader reads
	// them like per-element attributes of the same name, via the
	// synthesized element-index input.
	SourceTextures map[string]Texture

	// TargetTexture routes the kernel's rasterized output into the
	// given texture. Mutually exclusive with TargetTextureName.
	TargetTexture Texture

	// TargetTextureName routes the kernel's rasterized output into a
	// texture cloned from the source texture of this name (the
	// "reference texture"). The clone inherits the reference's
	// dimensions and is re-cloned whenever the reference is replaced
	// by a texture of different dimensions.
	TargetTextureName string

	// TargetTextureVarying is the kernel output name that is rendered
	// into the target texture rather than captured into a buffer.
	// Required when TargetTexture or TargetTextureName is set.
	TargetTextureVarying string

	// SwapTexture is a source texture name whose role is exchanged
	// with the target texture on [Transform.Swap]: the just-rendered
	// target becomes the next generation's source under this name,
	// and the prior source is reused as the next target.
	SwapTexture string

	// ElementCount is the number of parallel elements processed per
	// invocation. For Update, 0 means unchanged.
	ElementCount int

	// DrawMode is the primitive topology; DrawPoints is the default.
	DrawMode DrawMode

	// Rewriter rewrites the kernel source for texture-backed inputs.
	// If nil, the [cogentcore.org/transform/glsltext] rewriter is used.
	Rewriter ShaderRewriter
}

// RunConfig has the per-invocation options for [Transform.Run].
type RunConfig struct {
	// Uniforms are merged over the derived uniforms (samplers and
	// texture size uniforms); caller values win on key collision.
	Uniforms map[string]any

	// Parameters is pass-through render state for the backend.
	Parameters map[string]any

	// NoClear suppresses the default clearing of the render target's
	// color contents before the draw.
	NoClear bool
}

// ReadConfig has the options for [Transform.ReadData].
type ReadConfig struct {
	// Name is the feedback buffer to read. If empty, or equal to the
	// texture-routed output name, the current render target's pixels
	// are read back instead.
	Name string

	// Packed repacks render target pixels from the fixed 4 channel
	// readback layout down to the channel count of the target's format.
	Packed bool
}
