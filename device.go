// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"image"
	"unsafe"
)

// Debug is a global flag for getting extra diagnostic information
// printed during configuration and kernel runs.
var Debug = false

// DataType is the component type of buffer elements and texture pixels.
type DataType int32

const (
	// Float32 is a 32 bit floating point component.
	Float32 DataType = iota

	// Int32 is a 32 bit signed integer component.
	Int32

	// Uint32 is a 32 bit unsigned integer component.
	Uint32

	// Uint8 is an 8 bit unsigned integer component,
	// the standard texture pixel component.
	Uint8
)

// Bytes returns the size of one component of this type in bytes.
func (dt DataType) Bytes() int {
	if dt == Uint8 {
		return 1
	}
	return 4
}

// BufferUsage is the usage hint given to the device when allocating
// a buffer, determining what memory it is placed in.
type BufferUsage int32

const (
	// StaticDraw is for buffer contents written once and used many times.
	StaticDraw BufferUsage = iota

	// DynamicDraw is for buffer contents respecified repeatedly by the caller.
	DynamicDraw

	// StreamCopy is for buffer contents written by the device
	// (e.g., kernel capture output) and consumed by the device.
	StreamCopy
)

// BufferLayout describes the per-element layout of a linear buffer:
// the component type, the number of components per element, and the
// byte stride between consecutive elements (0 = tightly packed).
type BufferLayout struct {
	// Type of each component.
	Type DataType

	// Size is the number of components per element (e.g., 3 for vec3).
	Size int

	// Stride is the byte offset between consecutive elements.
	// 0 means tightly packed: Size * Type.Bytes().
	Stride int
}

// ElementBytes returns the number of bytes from the start of one
// element to the start of the next.
func (bl *BufferLayout) ElementBytes() int {
	if bl.Stride > 0 {
		return bl.Stride
	}
	return bl.Size * bl.Type.Bytes()
}

// BufferDescriptor has the parameters for creating a device buffer.
type BufferDescriptor struct {
	// ByteLength is the total allocation size. If Data is non-nil,
	// it can be left 0 and len(Data) is used.
	ByteLength int

	// Usage is the allocation usage hint.
	Usage BufferUsage

	// Layout is the per-element layout.
	Layout BufferLayout

	// Data is optional initial contents.
	Data []byte
}

// Buffer is a linear GPU memory region with a byte length, a usage
// hint, and a per-element layout. Implementations are provided by a
// device backend such as [cogentcore.org/transform/gldevice].
type Buffer interface {
	// ByteLength returns the total allocated size in bytes.
	ByteLength() int

	// Usage returns the allocation usage hint.
	Usage() BufferUsage

	// Layout returns the per-element layout.
	Layout() BufferLayout

	// SetData replaces the buffer contents. len(data) must not exceed
	// ByteLength.
	SetData(data []byte) error

	// ReadData reads the first len(dst) bytes of the buffer back to the
	// host. This synchronizes with any pending device work and can
	// therefore stall the caller.
	ReadData(dst []byte) error

	// Release frees the device memory. The buffer is unusable afterward.
	Release()
}

// FilterMode is the texture sampling filter.
type FilterMode int32

const (
	// FilterNearest samples the single nearest texel, with no interpolation.
	FilterNearest FilterMode = iota

	// FilterLinear interpolates between neighboring texels.
	FilterLinear
)

// WrapMode is the texture coordinate wrapping behavior.
type WrapMode int32

const (
	// WrapClampToEdge clamps coordinates to the texture edge.
	WrapClampToEdge WrapMode = iota

	// WrapRepeat wraps coordinates around.
	WrapRepeat
)

// TextureFormat describes the pixel format of a texture:
// number of channels and component type.
type TextureFormat struct {
	// Channels is the number of color channels per pixel (1..4).
	Channels int

	// Type of each channel component.
	Type DataType
}

// Defaults sets the standard RGBA 8 bit format.
func (tf *TextureFormat) Defaults() {
	tf.Channels = 4
	tf.Type = Uint8
}

// PixelBytes returns the number of bytes per pixel.
func (tf *TextureFormat) PixelBytes() int {
	return tf.Channels * tf.Type.Bytes()
}

// TextureDescriptor has the parameters for creating a 2D texture.
type TextureDescriptor struct {
	// Size of the texture in pixels.
	Size image.Point

	// Format is the pixel format. Zero value = RGBA 8 bit.
	Format TextureFormat

	// Filter is the sampling filter.
	Filter FilterMode

	// Wrap is the coordinate wrapping behavior.
	Wrap WrapMode

	// FlipY flips the image vertically on upload.
	FlipY bool

	// Data is optional initial pixel contents.
	Data []byte
}

// Texture is a 2D GPU texture with a size and pixel format.
type Texture interface {
	// Size returns the texture dimensions in pixels.
	Size() image.Point

	// Format returns the pixel format.
	Format() TextureFormat

	// SetSampling sets the sampling filter and wrap mode.
	SetSampling(filter FilterMode, wrap WrapMode)

	// Release frees the device memory. The texture is unusable afterward.
	Release()
}

// RenderTarget wraps a texture as the sole color output of a kernel
// invocation (a framebuffer object in GL terms).
type RenderTarget interface {
	// Texture returns the wrapped color texture.
	Texture() Texture

	// SetTexture replaces the wrapped color texture, resizing the
	// target to the texture dimensions.
	SetTexture(tex Texture) error

	// ReadPixels reads back the full target as 4 channel pixel data
	// in the component type of the texture format. This synchronizes
	// with any pending device work.
	ReadPixels() ([]byte, error)

	// Release frees the target (not the wrapped texture).
	Release()
}

// Capture is a device object that records a kernel invocation's
// designated outputs into buffers (a transform feedback object in GL
// terms). Every bound buffer must be a genuine device buffer.
type Capture interface {
	// SetBuffers binds output name to buffer, replacing any prior
	// bindings in place (object identity is retained).
	SetBuffers(buffers map[string]Buffer) error

	// Release frees the capture object (not the bound buffers).
	Release()
}

// DrawMode is the primitive topology of a kernel invocation.
type DrawMode int32

const (
	// DrawPoints runs the kernel once per element. This is the default
	// and the only mode where element and vertex are the same thing.
	DrawPoints DrawMode = iota

	// DrawLines assembles elements pairwise into lines.
	DrawLines

	// DrawTriangles assembles elements in threes into triangles.
	DrawTriangles
)

// Attribute pairs a buffer with the layout to read it with,
// for binding as a named kernel input.
type Attribute struct {
	Buffer Buffer
	Layout BufferLayout
}

// TransformOptions are the per-invocation options for [Program.Transform].
type TransformOptions struct {
	// Capture receives the designated outputs, if non-nil.
	Capture Capture

	// Uniforms are set on the program before the invocation.
	// Texture-valued uniforms are bound as samplers.
	Uniforms map[string]any

	// DiscardRaster runs the kernel purely for its capture side effect,
	// producing no pixel output.
	DiscardRaster bool

	// RenderTarget receives rasterized output when DiscardRaster is false.
	RenderTarget RenderTarget

	// ClearRenderTarget clears the target's color contents before drawing.
	ClearRenderTarget bool

	// Parameters is pass-through render state for the backend.
	Parameters map[string]any
}

// ProgramDescriptor has the parameters for building a kernel program.
type ProgramDescriptor struct {
	// VS is the vertex stage kernel source. Required.
	VS string

	// FS is the fragment stage source. If empty, the backend
	// synthesizes a passthrough stage.
	FS string

	// Varyings are the captured output names, in buffer binding order.
	Varyings []string

	// Defines are preprocessor definitions injected into the sources.
	Defines map[string]string

	// DrawMode is the primitive topology.
	DrawMode DrawMode
}

// Program is a compiled kernel program.
type Program interface {
	// SetAttributes binds named per-element inputs.
	SetAttributes(attrs map[string]Attribute)

	// SetVertexCount sets the number of elements processed per invocation.
	SetVertexCount(n int)

	// Transform issues one kernel invocation over the configured
	// element count, with the given capture / render routing.
	Transform(opts *TransformOptions) error

	// Release frees the program.
	Release()
}

// Device creates the GPU primitive objects this package choreographs.
type Device interface {
	// CreateBuffer creates a linear buffer.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// CreateTexture creates a 2D texture.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// CreateRenderTarget creates a render target wrapping the given
	// texture as its sole color output.
	CreateRenderTarget(tex Texture) (RenderTarget, error)

	// CreateCapture creates a capture object binding the given
	// program's outputs to the given buffers.
	CreateCapture(prog Program, buffers map[string]Buffer) (Capture, error)

	// CreateProgram compiles and links a kernel program.
	CreateProgram(desc *ProgramDescriptor) (Program, error)

	// CanCapture reports whether the device supports capture objects.
	CanCapture() bool
}

// IsSupported reports whether the given device can run transforms.
// It is a pure capability probe with no state mutation.
func IsSupported(dev Device) bool {
	return dev != nil && dev.CanCapture()
}

// ToBytes returns the underlying bytes of the given slice of values,
// for setting buffer data from typed values.
func ToBytes[E any](vals []E) []byte {
	if len(vals) == 0 {
		return nil
	}
	sz := int(unsafe.Sizeof(vals[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), sz*len(vals))
}

// FromBytes returns the given bytes viewed as a slice of values,
// for reading typed values back from buffer data.
func FromBytes[E any](b []byte) []E {
	if len(b) == 0 {
		return nil
	}
	var e E
	sz := int(unsafe.Sizeof(e))
	return unsafe.Slice((*E)(unsafe.Pointer(&b[0])), len(b)/sz)
}
