// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package glsltext

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyVS = `
attribute vec3 pos;
attribute float mass;
varying vec3 nextPos;
void main() {
	nextPos = pos / mass;
}
`

const modernVS = `#version 300 es
in vec4 state;
out vec4 outState;
void main() {
	outState = state;
}
`

func TestRewriteLegacy(t *testing.T) {
	rw := &Rewriter{}
	out, err := rw.RewriteForTextures(legacyVS, []string{"pos"}, "")
	require.NoError(t, err)

	// the attribute declaration is gone, replaced by sampler + size uniforms
	assert.NotContains(t, out, "attribute vec3 pos;")
	assert.Contains(t, out, "uniform sampler2D "+SamplerName("pos")+";")
	assert.Contains(t, out, "uniform vec2 "+SizeName("pos")+";")

	// the element index attribute and coordinate helper are injected
	assert.Contains(t, out, "attribute float "+ElementIndexName+";")
	assert.Contains(t, out, "transform_getCoord")

	// the attribute becomes a local fetched from the addressed texel
	assert.Contains(t, out, "vec3 pos = texture2D("+SamplerName("pos"))
	assert.Contains(t, out, ".xyz;")

	// untouched attributes stay
	assert.Contains(t, out, "attribute float mass;")
}

func TestRewriteModern(t *testing.T) {
	rw := &Rewriter{}
	out, err := rw.RewriteForTextures(modernVS, []string{"state"}, "outState")
	require.NoError(t, err)
	assert.Contains(t, out, "in float "+ElementIndexName+";")
	assert.Contains(t, out, "vec4 state = texture("+SamplerName("state"))
	assert.NotContains(t, out, "texture2D")
	// the fetch happens inside main, after its opening brace
	assert.Less(t, strings.Index(out, "void main"), strings.Index(out, "vec4 state = texture("))
	// the version directive stays first
	assert.True(t, strings.HasPrefix(out, "#version 300 es"))
}

func TestRewriteErrors(t *testing.T) {
	rw := &Rewriter{}
	_, err := rw.RewriteForTextures(legacyVS, []string{"velocity"}, "")
	assert.Error(t, err) // no such attribute

	_, err = rw.RewriteForTextures(legacyVS, []string{"pos"}, "outState")
	assert.Error(t, err) // target varying not declared

	_, err = rw.RewriteForTextures("attribute vec2 uv;", []string{"uv"}, "")
	assert.Error(t, err) // no main function
}

func TestPassthroughFragment(t *testing.T) {
	rw := &Rewriter{}

	fs, err := rw.PassthroughFragment(modernVS, "outState")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fs, "#version 300 es"))
	assert.Contains(t, fs, "precision highp float;")
	assert.Contains(t, fs, "in vec4 outState;")
	assert.Contains(t, fs, "transform_fragColor = outState;")

	fs, err = rw.PassthroughFragment(legacyVS, "nextPos")
	require.NoError(t, err)
	assert.NotContains(t, fs, "#version")
	assert.Contains(t, fs, "varying vec3 nextPos;")
	assert.Contains(t, fs, "gl_FragColor = vec4(nextPos, 1.0);")

	_, err = rw.PassthroughFragment(legacyVS, "missing")
	assert.Error(t, err)
}

func TestSizeUniforms(t *testing.T) {
	rw := &Rewriter{}
	us := rw.SizeUniforms(map[string]image.Point{
		"state": image.Pt(8, 4),
	})
	assert.Equal(t, [2]float32{8, 4}, us[SizeName("state")])
}

func TestNames(t *testing.T) {
	rw := &Rewriter{}
	assert.Equal(t, ElementIndexName, rw.IndexAttribute())
	assert.Equal(t, "transform_uSampler_state", rw.SamplerUniform("state"))
	assert.Equal(t, "transform_uSize_state", SizeName("state"))
}
