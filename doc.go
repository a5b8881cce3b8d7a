// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transform implements iterative compute via rasterization:
// a per-element kernel program whose captured buffer outputs and/or
// rendered texture output become the next iteration's inputs.
//
// A [Transform] keeps two parallel generations of all bindings (source
// and feedback buffers, source and target textures, capture object,
// render target). Configuring a [Config.FeedbackMap] auto-creates
// missing feedback buffers and pre-wires the other generation so that
// generation N's outputs are exactly generation N+1's inputs, with no
// allocation or recomputation on [Transform.Swap]. Texture-backed
// inputs are reconciled with the buffer-backed shader interface by a
// synthesized element-index buffer and shader-source rewriting (see
// [cogentcore.org/transform/glsltext]).
//
// All operations are synchronous and single-threaded; the one implicit
// synchronization cost is [Transform.ReadData], which must wait for
// the prior kernel invocation to complete.
//
// GPU primitives (buffers, 2D textures, render targets, capture
// objects, programs) are created by a [Device] backend such as
// [cogentcore.org/transform/gldevice].
package transform
