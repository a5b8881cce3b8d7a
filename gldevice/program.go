// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gldevice

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/transform"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Program is a linked kernel program: a vertex stage with transform
// feedback varyings, plus a fragment stage (synthesized if not given).
type Program struct {
	id          uint32
	vao         uint32
	drawMode    uint32
	varyings    []string
	attrs       map[string]transform.Attribute
	vertexCount int
}

// CreateProgram compiles and links a kernel program per the descriptor.
func (dv *Device) CreateProgram(desc *transform.ProgramDescriptor) (transform.Program, error) {
	if desc.VS == "" {
		return nil, errors.Log(errors.New("gldevice: program needs a vertex stage source"))
	}
	fsSrc := desc.FS
	if fsSrc == "" {
		fsSrc = defaultFS(desc.VS)
	}
	vs, err := compileShader(gl.VERTEX_SHADER, injectDefines(desc.VS, desc.Defines))
	if errors.Log(err) != nil {
		return nil, err
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, injectDefines(fsSrc, desc.Defines))
	if errors.Log(err) != nil {
		gl.DeleteShader(vs)
		return nil, err
	}
	p := gl.CreateProgram()
	gl.AttachShader(p, vs)
	gl.AttachShader(p, fs)
	if len(desc.Varyings) > 0 {
		terminated := make([]string, len(desc.Varyings))
		for i, v := range desc.Varyings {
			terminated[i] = v + "\x00"
		}
		cnames, free := gl.Strs(terminated...)
		gl.TransformFeedbackVaryings(p, int32(len(desc.Varyings)), cnames, gl.SEPARATE_ATTRIBS)
		free()
	}
	gl.LinkProgram(p)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := programInfoLog(p)
		gl.DeleteProgram(p)
		return nil, errors.Log(fmt.Errorf("gldevice: program link failed: %s", log))
	}
	pg := &Program{
		id:       p,
		drawMode: glDrawMode(desc.DrawMode),
		varyings: slices.Clone(desc.Varyings),
	}
	gl.GenVertexArrays(1, &pg.vao)
	return pg, nil
}

func (pg *Program) SetAttributes(attrs map[string]transform.Attribute) {
	pg.attrs = maps.Clone(attrs)
}

func (pg *Program) SetVertexCount(n int) {
	pg.vertexCount = n
}

// varyingIndex returns the transform feedback slot of the named
// varying, or -1 if the program does not capture it.
func (pg *Program) varyingIndex(name string) int {
	return slices.Index(pg.varyings, name)
}

// Transform issues one kernel invocation over the configured vertex
// count: capture output streams into the bound capture object's
// buffers, and either rasterize into the render target (viewport set
// to its full dimensions, color cleared first unless suppressed) or
// discard rasterization entirely.
func (pg *Program) Transform(opts *transform.TransformOptions) error {
	if opts == nil {
		opts = &transform.TransformOptions{}
	}
	gl.UseProgram(pg.id)
	gl.BindVertexArray(pg.vao)
	pg.bindAttributes()
	pg.applyUniforms(opts.Uniforms)
	applyParameters(opts.Parameters)

	render := opts.RenderTarget != nil && !opts.DiscardRaster
	if render {
		rt := opts.RenderTarget.(*RenderTarget)
		gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
		sz := rt.tex.size
		gl.Viewport(0, 0, int32(sz.X), int32(sz.Y))
		if opts.ClearRenderTarget {
			gl.ClearColor(0, 0, 0, 0)
			gl.Clear(gl.COLOR_BUFFER_BIT)
		}
	} else {
		gl.Enable(gl.RASTERIZER_DISCARD)
	}
	if opts.Capture != nil {
		cp := opts.Capture.(*Capture)
		gl.BindTransformFeedback(gl.TRANSFORM_FEEDBACK, cp.tfo)
		gl.BeginTransformFeedback(pg.drawMode)
	}
	gl.DrawArrays(pg.drawMode, 0, int32(pg.vertexCount))
	if opts.Capture != nil {
		gl.EndTransformFeedback()
		gl.BindTransformFeedback(gl.TRANSFORM_FEEDBACK, 0)
	}
	if render {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	} else {
		gl.Disable(gl.RASTERIZER_DISCARD)
	}
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	return checkError("Transform")
}

func (pg *Program) Release() {
	if pg.vao != 0 {
		gl.DeleteVertexArrays(1, &pg.vao)
		pg.vao = 0
	}
	if pg.id != 0 {
		gl.DeleteProgram(pg.id)
		pg.id = 0
	}
}

// bindAttributes points each active attribute at its buffer with the
// configured element layout.
func (pg *Program) bindAttributes() {
	for name, at := range pg.attrs {
		loc := gl.GetAttribLocation(pg.id, gl.Str(name+"\x00"))
		if loc < 0 {
			continue // inactive or rewritten away
		}
		bf, ok := at.Buffer.(*Buffer)
		if !ok {
			continue
		}
		lay := at.Layout
		gl.BindBuffer(gl.ARRAY_BUFFER, bf.id)
		gl.EnableVertexAttribArray(uint32(loc))
		switch lay.Type {
		case transform.Int32, transform.Uint32:
			gl.VertexAttribIPointer(uint32(loc), int32(lay.Size), glType(lay.Type), int32(lay.Stride), gl.PtrOffset(0))
		default:
			gl.VertexAttribPointer(uint32(loc), int32(lay.Size), glType(lay.Type), false, int32(lay.Stride), gl.PtrOffset(0))
		}
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// applyUniforms sets each uniform by value type; texture values are
// bound to sequential texture units.
func (pg *Program) applyUniforms(us map[string]any) {
	unit := int32(0)
	for name, val := range us {
		loc := gl.GetUniformLocation(pg.id, gl.Str(name+"\x00"))
		if loc < 0 {
			continue
		}
		switch v := val.(type) {
		case float32:
			gl.Uniform1f(loc, v)
		case float64:
			gl.Uniform1f(loc, float32(v))
		case int:
			gl.Uniform1i(loc, int32(v))
		case int32:
			gl.Uniform1i(loc, v)
		case bool:
			b := int32(0)
			if v {
				b = 1
			}
			gl.Uniform1i(loc, b)
		case [2]float32:
			gl.Uniform2f(loc, v[0], v[1])
		case [3]float32:
			gl.Uniform3f(loc, v[0], v[1], v[2])
		case [4]float32:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case []float32:
			switch len(v) {
			case 2:
				gl.Uniform2f(loc, v[0], v[1])
			case 3:
				gl.Uniform3f(loc, v[0], v[1], v[2])
			case 4:
				gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
			default:
				gl.Uniform1fv(loc, int32(len(v)), &v[0])
			}
		case *Texture:
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, v.id)
			gl.Uniform1i(loc, unit)
			unit++
		default:
			slog.Warn("gldevice: unsupported uniform value type", "name", name, "value", val)
		}
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

// applyParameters applies recognized pass-through render state.
func applyParameters(params map[string]any) {
	for name, val := range params {
		on, ok := val.(bool)
		if !ok {
			slog.Warn("gldevice: unsupported render parameter", "name", name, "value", val)
			continue
		}
		var state uint32
		switch name {
		case "blend":
			state = gl.BLEND
		case "depthTest":
			state = gl.DEPTH_TEST
		case "scissorTest":
			state = gl.SCISSOR_TEST
		default:
			slog.Warn("gldevice: unsupported render parameter", "name", name)
			continue
		}
		if on {
			gl.Enable(state)
		} else {
			gl.Disable(state)
		}
	}
}

// compileShader compiles one shader stage, returning the GL shader id.
func compileShader(xtype uint32, src string) (uint32, error) {
	sh := gl.CreateShader(xtype)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)
	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &n)
		log := strings.Repeat("\x00", int(n)+1)
		gl.GetShaderInfoLog(sh, n, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("gldevice: shader compile failed: %s", strings.TrimRight(log, "\x00"))
	}
	return sh, nil
}

func programInfoLog(p uint32) string {
	var n int32
	gl.GetProgramiv(p, gl.INFO_LOG_LENGTH, &n)
	log := strings.Repeat("\x00", int(n)+1)
	gl.GetProgramInfoLog(p, n, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

// defaultFS synthesizes a trivial fragment stage matching the vertex
// source's version directive, for capture-only kernels. The declared
// out form requires version 130; older versions get gl_FragColor.
func defaultFS(vs string) string {
	line := versionLine(vs)
	var b strings.Builder
	if line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if versionNumber(line) < 130 {
		b.WriteString("void main() {\n\tgl_FragColor = vec4(0.0);\n}\n")
		return b.String()
	}
	if strings.HasSuffix(line, " es") {
		b.WriteString("precision highp float;\n")
	}
	b.WriteString("out vec4 transform_fragColor;\nvoid main() {\n\ttransform_fragColor = vec4(0.0);\n}\n")
	return b.String()
}

// versionNumber returns the number in a #version directive line, or 0.
func versionNumber(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(fields[1])
	return n
}

// versionLine returns the #version directive line of src, or "".
func versionLine(src string) string {
	for _, line := range strings.Split(src, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#version") {
			return t
		}
	}
	return ""
}

// injectDefines inserts #define lines after the version directive
// (or at the top when there is none), in sorted order.
func injectDefines(src string, defines map[string]string) string {
	if len(defines) == 0 {
		return src
	}
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(defines)) {
		fmt.Fprintf(&b, "#define %s %s\n", k, defines[k])
	}
	defs := b.String()
	line := versionLine(src)
	if line == "" {
		return defs + src
	}
	idx := strings.Index(src, line) + len(line)
	return src[:idx] + "\n" + defs + src[idx:]
}
