// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"fmt"
	"image"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/slicesx"
)

// ShaderRewriter is the shader-source text utility the texture/buffer
// bridge collaborates with. It rewrites a kernel so that named
// attributes are sourced from named textures via a synthesized
// element-index input, and derives the uniform naming the sampling
// math depends on. [cogentcore.org/transform/glsltext.Rewriter] is the
// default implementation.
type ShaderRewriter interface {
	// IndexAttribute returns the name of the synthesized element-index
	// attribute the rewritten shader reads.
	IndexAttribute() string

	// SamplerUniform returns the sampler uniform name for the given
	// texture (attribute) name.
	SamplerUniform(name string) string

	// RewriteForTextures rewrites the kernel source so that each named
	// attribute in textures is sampled from its texture, addressed by
	// the element-index attribute. targetVarying, if non-empty, is the
	// output rendered to the target texture.
	RewriteForTextures(src string, textures []string, targetVarying string) (string, error)

	// PassthroughFragment synthesizes a fragment stage that writes the
	// named kernel output to the color attachment, matching the version
	// and declared type in the kernel source.
	PassthroughFragment(src, targetVarying string) (string, error)

	// SizeUniforms derives the per-texture width/height uniforms
	// needed for sampling math, from texture name to dimensions.
	SizeUniforms(sizes map[string]image.Point) map[string]any
}

// bridgeActive reports whether any named input or the kernel's
// designated output is texture-backed.
func (tf *Transform) bridgeActive() bool {
	return len(tf.cur().sourceTextures) > 0 || tf.targetTextureVarying != ""
}

// setupTextures applies the texture portion of the configuration to
// the current generation: installs source texture bindings, resolves
// the target texture (direct or cloned from a reference), and
// pre-wires the other generation's texture tables, including the
// source/target exchange for a configured swap texture.
func (tf *Transform) setupTextures(cfg *Config) error {
	if cfg.SourceTextures == nil && cfg.TargetTexture == nil &&
		cfg.TargetTextureName == "" && cfg.SwapTexture == "" &&
		cfg.TargetTextureVarying == "" {
		return nil
	}
	cur := tf.cur()
	for name, tx := range cfg.SourceTextures {
		if tx == nil {
			return errors.Log(fmt.Errorf("transform: source texture %q is not a texture handle", name))
		}
		cur.sourceTextures[name] = tx
	}
	if cfg.SwapTexture != "" {
		tf.swapTexture = cfg.SwapTexture
	}
	if cfg.TargetTextureVarying != "" {
		tf.targetTextureVarying = cfg.TargetTextureVarying
	}
	if cfg.TargetTexture != nil && cfg.TargetTextureName != "" {
		return errors.Log(errors.New("transform: TargetTexture and TargetTextureName are mutually exclusive"))
	}
	if cfg.TargetTexture != nil {
		cur.targetTexture = cfg.TargetTexture
		tf.targetRefName = ""
	} else if cfg.TargetTextureName != "" {
		tf.targetRefName = cfg.TargetTextureName
	}
	if tf.targetRefName != "" {
		if err := tf.ensureTargetClone(); err != nil {
			return err
		}
	}
	if cur.targetTexture != nil && tf.targetTextureVarying == "" {
		return errors.Log(errors.New("transform: a target texture requires TargetTextureVarying"))
	}

	// pre-wire the other generation: the just-rendered target becomes
	// the next source under the swap name, and the stale prior source
	// slot is reused as the next target.
	nxt := tf.next()
	nxt.copyTexturesFrom(cur)
	if tf.swapTexture != "" {
		srcTex := cur.sourceTextures[tf.swapTexture]
		if srcTex == nil {
			return errors.Log(fmt.Errorf("transform: SwapTexture %q is not a source texture name", tf.swapTexture))
		}
		if cur.targetTexture == nil {
			return errors.Log(errors.New("transform: SwapTexture requires a target texture"))
		}
		nxt.sourceTextures[tf.swapTexture] = cur.targetTexture
		nxt.targetTexture = srcTex
	} else {
		nxt.targetTexture = cur.targetTexture
	}
	return nil
}

// ensureTargetClone resolves the target texture cloned from the
// reference source texture named by TargetTextureName. The clone
// inherits the reference's dimensions and format and is tagged with
// nearest-neighbor sampling, clamp-to-edge wrapping, and no vertical
// flip on upload. It is re-cloned only when the reference has been
// replaced by a texture of different dimensions.
func (tf *Transform) ensureTargetClone() error {
	cur := tf.cur()
	ref := cur.sourceTextures[tf.targetRefName]
	if ref == nil {
		return errors.Log(fmt.Errorf("transform: TargetTextureName %q is not a source texture name", tf.targetRefName))
	}
	if tf.targetClone != nil && tf.targetClone.Size() == ref.Size() {
		if cur.targetTexture == nil {
			cur.targetTexture = tf.targetClone
		}
		return nil
	}
	clone, err := tf.device.CreateTexture(&TextureDescriptor{
		Size:   ref.Size(),
		Format: ref.Format(),
		Filter: FilterNearest,
		Wrap:   WrapClampToEdge,
		FlipY:  false,
	})
	if errors.Log(err) != nil {
		return err
	}
	tf.registry.set("target-texture", clone)
	tf.targetClone = clone
	cur.targetTexture = clone
	return nil
}

// ensureRenderTargets creates, or retargets in place, each
// generation's render target wrapping that generation's target
// texture. A render target exists only when the kernel renders into
// a texture.
func (tf *Transform) ensureRenderTargets() error {
	for i := range tf.gens {
		gn := &tf.gens[i]
		if gn.targetTexture == nil {
			continue
		}
		if gn.renderTarget == nil {
			rt, err := tf.device.CreateRenderTarget(gn.targetTexture)
			if errors.Log(err) != nil {
				return err
			}
			tf.registry.set(fmt.Sprintf("render-target:%d", i), rt)
			gn.renderTarget = rt
		} else if gn.renderTarget.Texture() != gn.targetTexture {
			if err := errors.Log(gn.renderTarget.SetTexture(gn.targetTexture)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureIndexBuffer lazily builds the element-index buffer containing
// 0..elementCount-1, used to address texture samples per element.
// Contents are regenerated only when elementCount grows past the
// previous build; shrinking leaves the existing buffer valid, with
// only the active prefix used.
func (tf *Transform) ensureIndexBuffer() error {
	if !tf.bridgeActive() || tf.elementCount == 0 {
		return nil
	}
	if tf.indexBuffer != nil && tf.elementCount <= tf.indexBuilt {
		return nil
	}
	tf.indexIDs = slicesx.SetLength(tf.indexIDs, tf.elementCount)
	for i := range tf.indexIDs {
		tf.indexIDs[i] = float32(i)
	}
	buf, err := tf.device.CreateBuffer(&BufferDescriptor{
		Usage:  StaticDraw,
		Layout: BufferLayout{Type: Float32, Size: 1},
		Data:   ToBytes(tf.indexIDs),
	})
	if errors.Log(err) != nil {
		return err
	}
	tf.registry.set("element-index", buf)
	tf.indexBuffer = buf
	tf.indexBuilt = tf.elementCount
	return nil
}

// textureUniforms assembles the derived uniforms for the current
// generation: one sampler per source texture, plus the width/height
// size uniforms the sampling math depends on (including the target
// texture's, under the texture-routed output name).
func (tf *Transform) textureUniforms() map[string]any {
	cur := tf.cur()
	us := make(map[string]any, 2*len(cur.sourceTextures)+1)
	sizes := make(map[string]image.Point, len(cur.sourceTextures)+1)
	for name, tx := range cur.sourceTextures {
		us[tf.rewriter.SamplerUniform(name)] = tx
		sizes[name] = tx.Size()
	}
	if cur.targetTexture != nil && tf.targetTextureVarying != "" {
		sizes[tf.targetTextureVarying] = cur.targetTexture.Size()
	}
	for k, v := range tf.rewriter.SizeUniforms(sizes) {
		us[k] = v
	}
	return us
}
