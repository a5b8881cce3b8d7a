// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package glsltext rewrites GLSL kernel sources so that per-element
// attributes can be sourced from 2D textures: each rewritten attribute
// declaration is replaced by a sampler and size uniform pair, and the
// attribute's value is fetched in main from the texel addressed by a
// synthesized element-index attribute.
package glsltext

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

// ElementIndexName is the synthesized element-index attribute:
// a float attribute holding 0..elementCount-1, from which the
// rewritten shader computes the 2D coordinate to sample.
const ElementIndexName = "transform_elementID"

// SamplerName returns the sampler uniform name for a texture-backed
// attribute of the given name.
func SamplerName(name string) string {
	return "transform_uSampler_" + name
}

// SizeName returns the width/height uniform name for a texture-backed
// attribute of the given name.
func SizeName(name string) string {
	return "transform_uSize_" + name
}

// coordFunc computes the texel center coordinate for an element index,
// addressing the texture in row-major order.
const coordFunc = `
vec2 transform_getCoord(float index, vec2 size) {
	float x = mod(index, size.x);
	float y = floor(index / size.x);
	return (vec2(x, y) + 0.5) / size;
}
`

var (
	versionRe     = regexp.MustCompile(`(?m)^\s*#version\s+(\d+)`)
	versionLineRe = regexp.MustCompile(`(?m)^\s*#version[^\n]*`)
	mainRe        = regexp.MustCompile(`void\s+main\s*\([^)]*\)\s*\{`)
)

// Rewriter is the default shader-text utility used by
// cogentcore.org/transform. The zero value is ready to use.
type Rewriter struct{}

// IndexAttribute returns [ElementIndexName].
func (rw *Rewriter) IndexAttribute() string {
	return ElementIndexName
}

// SamplerUniform returns [SamplerName] for the given texture name.
func (rw *Rewriter) SamplerUniform(name string) string {
	return SamplerName(name)
}

// SizeUniforms derives the per-texture width/height uniforms for
// sampling math, as [SizeName] to [2]float32{width, height}.
func (rw *Rewriter) SizeUniforms(sizes map[string]image.Point) map[string]any {
	us := make(map[string]any, len(sizes))
	for name, sz := range sizes {
		us[SizeName(name)] = [2]float32{float32(sz.X), float32(sz.Y)}
	}
	return us
}

// RewriteForTextures rewrites src so that each attribute named in
// textures is sourced from its texture: the attribute declaration is
// replaced by sampler and size uniforms, the element-index attribute
// and coordinate helper are injected, and the attribute becomes a
// local in main fetched from the addressed texel. targetVarying is
// validated to be declared as an output when non-empty; the fragment
// side of texture-routed output is the program builder's concern.
func (rw *Rewriter) RewriteForTextures(src string, textures []string, targetVarying string) (string, error) {
	if targetVarying != "" && !declaresOutput(src, targetVarying) {
		return "", fmt.Errorf("glsltext: target varying %q is not declared as an output in the kernel source", targetVarying)
	}
	modern := glslVersion(src) >= 130
	var decls, fetch strings.Builder
	for _, name := range textures {
		typ, rest, err := stripAttribute(src, name)
		if err != nil {
			return "", err
		}
		src = rest
		fmt.Fprintf(&decls, "uniform sampler2D %s;\n", SamplerName(name))
		fmt.Fprintf(&decls, "uniform vec2 %s;\n", SizeName(name))
		fn := "texture2D"
		if modern {
			fn = "texture"
		}
		fmt.Fprintf(&fetch, "\t%s %s = %s(%s, transform_getCoord(%s, %s))%s;\n",
			typ, name, fn, SamplerName(name), ElementIndexName, SizeName(name), swizzle(typ))
	}
	attrKw := "attribute"
	if modern {
		attrKw = "in"
	}
	header := fmt.Sprintf("%s float %s;\n%s%s", attrKw, ElementIndexName, decls.String(), coordFunc)

	loc := mainRe.FindStringIndex(src)
	if loc == nil {
		return "", fmt.Errorf("glsltext: kernel source has no main function")
	}
	var b strings.Builder
	b.Grow(len(src) + len(header) + fetch.Len())
	b.WriteString(src[:loc[0]])
	b.WriteString(header)
	b.WriteString(src[loc[0]:loc[1]])
	b.WriteString("\n")
	b.WriteString(fetch.String())
	b.WriteString(src[loc[1]:])
	return b.String(), nil
}

// PassthroughFragment synthesizes a fragment stage that writes the
// named output of the kernel source src to the color attachment. The
// result matches src's version directive and the declared type of the
// varying, widened to 4 channels for the color write.
func (rw *Rewriter) PassthroughFragment(src, targetVarying string) (string, error) {
	typ := outputType(src, targetVarying)
	if typ == "" {
		return "", fmt.Errorf("glsltext: target varying %q is not declared as an output in the kernel source", targetVarying)
	}
	var b strings.Builder
	line := strings.TrimSpace(versionLineRe.FindString(src))
	modern := glslVersion(src) >= 130
	if modern {
		b.WriteString(line)
		b.WriteString("\n")
		if strings.HasSuffix(line, " es") {
			b.WriteString("precision highp float;\n")
		}
		fmt.Fprintf(&b, "in %s %s;\nout vec4 transform_fragColor;\nvoid main() {\n\ttransform_fragColor = %s;\n}\n",
			typ, targetVarying, widen(typ, targetVarying))
	} else {
		fmt.Fprintf(&b, "varying %s %s;\nvoid main() {\n\tgl_FragColor = %s;\n}\n",
			typ, targetVarying, widen(typ, targetVarying))
	}
	return b.String(), nil
}

// widen expands expr of the given GLSL type to a vec4 color value.
func widen(typ, expr string) string {
	switch typ {
	case "float":
		return fmt.Sprintf("vec4(%s, 0.0, 0.0, 1.0)", expr)
	case "vec2":
		return fmt.Sprintf("vec4(%s, 0.0, 1.0)", expr)
	case "vec3":
		return fmt.Sprintf("vec4(%s, 1.0)", expr)
	default:
		return expr
	}
}

// glslVersion returns the #version number declared in src, or 0.
func glslVersion(src string) int {
	m := versionRe.FindStringSubmatch(src)
	if m == nil {
		return 0
	}
	v, _ := strconv.Atoi(m[1])
	return v
}

// stripAttribute removes the attribute (or in) declaration of the
// given name from src, returning its GLSL type and the remaining
// source.
func stripAttribute(src, name string) (typ, rest string, err error) {
	re := regexp.MustCompile(`(?m)^[ \t]*(attribute|in)[ \t]+(float|vec2|vec3|vec4)[ \t]+` +
		regexp.QuoteMeta(name) + `[ \t]*;[ \t]*\n?`)
	m := re.FindStringSubmatch(src)
	if m == nil {
		return "", "", fmt.Errorf("glsltext: no attribute declaration found for texture-backed input %q", name)
	}
	return m[2], re.ReplaceAllString(src, ""), nil
}

// outputType returns the GLSL type src declares for name as a
// varying/out, or "" when there is no such declaration.
func outputType(src, name string) string {
	re := regexp.MustCompile(`(?m)^[ \t]*(varying|out)[ \t]+(\w+)[ \t]+` +
		regexp.QuoteMeta(name) + `[ \t]*;`)
	m := re.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	return m[2]
}

// declaresOutput reports whether src declares name as a varying/out.
func declaresOutput(src, name string) bool {
	return outputType(src, name) != ""
}

// swizzle returns the component selection applied to a 4 channel
// texel fetch to produce a value of the given GLSL type.
func swizzle(typ string) string {
	switch typ {
	case "float":
		return ".x"
	case "vec2":
		return ".xy"
	case "vec3":
		return ".xyz"
	default:
		return ""
	}
}
