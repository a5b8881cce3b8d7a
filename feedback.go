// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"fmt"
	"maps"
	"slices"

	"cogentcore.org/core/base/errors"
)

// setupBuffers applies the buffer portion of the configuration to the
// current generation: installs the supplied source and feedback
// bindings, auto-creates missing feedback buffers named by the
// feedback map, and pre-wires the other generation's tables so that
// [Transform.Swap] needs no recomputation.
func (tf *Transform) setupBuffers(cfg *Config) error {
	if cfg.SourceBuffers == nil && cfg.FeedbackBuffers == nil && cfg.FeedbackMap == nil {
		return nil
	}
	cur := tf.cur()
	for name, b := range cfg.SourceBuffers {
		if b.buffer() == nil {
			return errors.Log(fmt.Errorf("transform: source buffer %q has no buffer handle", name))
		}
		cur.sourceBuffers[name] = b.buffer()
		if b.Layout != nil {
			tf.layouts[name] = *b.Layout
		}
	}
	for name, b := range cfg.FeedbackBuffers {
		if b.buffer() == nil {
			return errors.Log(fmt.Errorf("transform: feedback buffer %q has no buffer handle", name))
		}
		cur.feedbackBuffers[name] = b.buffer()
	}
	if cfg.FeedbackMap != nil {
		tf.feedbackMap = maps.Clone(cfg.FeedbackMap)
	}
	if err := tf.createFeedbackBuffers(); err != nil {
		return err
	}
	return tf.aliasGenerations()
}

// createFeedbackBuffers auto-creates, for every feedback map pair whose
// destination is not texture-routed and has no buffer yet, a feedback
// buffer copying the source buffer's byte length, usage hint, and
// layout exactly. Created buffers are registry-owned.
func (tf *Transform) createFeedbackBuffers() error {
	cur := tf.cur()
	for _, src := range slices.Sorted(maps.Keys(tf.feedbackMap)) {
		dst := tf.feedbackMap[src]
		if dst == tf.targetTextureVarying && dst != "" {
			continue // texture-routed output, not buffer-routed
		}
		sb := cur.sourceBuffers[src]
		if sb == nil {
			return errors.Log(fmt.Errorf("transform: feedback map source %q is not a source buffer name", src))
		}
		if _, ok := cur.feedbackBuffers[dst]; ok {
			continue
		}
		buf, err := tf.device.CreateBuffer(&BufferDescriptor{
			ByteLength: sb.ByteLength(),
			Usage:      sb.Usage(),
			Layout:     sb.Layout(),
		})
		if errors.Log(err) != nil {
			return err
		}
		tf.registry.set("feedback-buffer:"+dst, buf)
		cur.feedbackBuffers[dst] = buf
	}
	return nil
}

// aliasGenerations computes the cross-generation buffer aliasing:
// the other generation's tables start as a copy of the current ones
// (unmapped names stay identical across generations), then for every
// mapped pair, generation N's destination becomes generation N+1's
// source, and generation N's source storage is reused as generation
// N+1's destination. No allocation happens on swap.
func (tf *Transform) aliasGenerations() error {
	cur, nxt := tf.cur(), tf.next()
	nxt.copyBuffersFrom(cur)
	for src, dst := range tf.feedbackMap {
		if dst == tf.targetTextureVarying && dst != "" {
			continue
		}
		fb := cur.feedbackBuffers[dst]
		sb := cur.sourceBuffers[src]
		if fb == nil || sb == nil {
			return errors.Log(fmt.Errorf("transform: feedback map %q -> %q does not resolve to buffers on both sides", src, dst))
		}
		nxt.sourceBuffers[src] = fb
		nxt.feedbackBuffers[dst] = sb
	}
	return nil
}

// ensureCaptures creates, or updates in place, each generation's
// capture object binding the kernel program to that generation's full
// set of feedback buffers. A capture object exists only if the
// feedback buffer table is non-empty; its identity changes only when
// previously absent.
func (tf *Transform) ensureCaptures() error {
	for i := range tf.gens {
		gn := &tf.gens[i]
		if len(gn.feedbackBuffers) == 0 {
			continue
		}
		if gn.capture == nil {
			cp, err := tf.device.CreateCapture(tf.program, gn.feedbackBuffers)
			if errors.Log(err) != nil {
				return err
			}
			tf.registry.set(fmt.Sprintf("capture:%d", i), cp)
			gn.capture = cp
		} else if err := errors.Log(gn.capture.SetBuffers(gn.feedbackBuffers)); err != nil {
			return err
		}
	}
	return nil
}

// deriveVaryings returns the captured output names implied by the
// feedback map, in sorted source-name order, excluding the
// texture-routed output.
func (tf *Transform) deriveVaryings() []string {
	var vr []string
	for _, src := range slices.Sorted(maps.Keys(tf.feedbackMap)) {
		dst := tf.feedbackMap[src]
		if dst == tf.targetTextureVarying && dst != "" {
			continue
		}
		vr = append(vr, dst)
	}
	return vr
}
