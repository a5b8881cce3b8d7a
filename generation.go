// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import "maps"

// generation is one of two parallel snapshots of all bindings.
// Exactly one generation is current at any time; the other holds the
// pre-wired tables for the next iteration, so that [Transform.Swap]
// is a pure index flip with no recomputation.
type generation struct {
	// sourceBuffers are the named per-element inputs for this generation.
	sourceBuffers map[string]Buffer

	// feedbackBuffers are the named capture outputs for this generation.
	feedbackBuffers map[string]Buffer

	// sourceTextures are the named texture inputs for this generation.
	sourceTextures map[string]Texture

	// targetTexture receives rasterized output, if any.
	targetTexture Texture

	// renderTarget wraps targetTexture; exists only when the kernel
	// renders into a texture.
	renderTarget RenderTarget

	// capture binds the kernel program to feedbackBuffers; exists only
	// when feedbackBuffers is non-empty.
	capture Capture
}

func (gn *generation) init() {
	if gn.sourceBuffers == nil {
		gn.sourceBuffers = make(map[string]Buffer)
	}
	if gn.feedbackBuffers == nil {
		gn.feedbackBuffers = make(map[string]Buffer)
	}
	if gn.sourceTextures == nil {
		gn.sourceTextures = make(map[string]Texture)
	}
}

// copyBuffersFrom sets this generation's buffer tables to a copy of
// the other generation's, as the baseline for cross-generation
// aliasing: unmapped names stay identical across generations.
func (gn *generation) copyBuffersFrom(src *generation) {
	gn.sourceBuffers = maps.Clone(src.sourceBuffers)
	gn.feedbackBuffers = maps.Clone(src.feedbackBuffers)
}

// copyTexturesFrom sets this generation's source texture table to a
// copy of the other generation's.
func (gn *generation) copyTexturesFrom(src *generation) {
	gn.sourceTextures = maps.Clone(src.sourceTextures)
}

// Swap advances the current generation, flipping the generation index
// modulo 2. All cross-generation wiring was already established at
// configuration time, so the new current generation's inputs are
// exactly the prior generation's outputs.
//
// Swap panics if neither a feedback map nor a swap texture is
// configured: without one there is nothing meaningful to alternate.
func (tf *Transform) Swap() {
	tf.checkLive()
	if len(tf.feedbackMap) == 0 && tf.swapTexture == "" {
		panic("transform.Swap: requires a FeedbackMap or SwapTexture configuration")
	}
	tf.current = (tf.current + 1) % 2
}

// cur returns the current generation.
func (tf *Transform) cur() *generation {
	return &tf.gens[tf.current]
}

// next returns the other (non-current) generation.
func (tf *Transform) next() *generation {
	return &tf.gens[(tf.current+1)%2]
}
