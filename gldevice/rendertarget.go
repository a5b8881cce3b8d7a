// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gldevice

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/transform"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// RenderTarget is a framebuffer object wrapping one texture as its
// sole color attachment.
type RenderTarget struct {
	fbo uint32
	tex *Texture
}

// CreateRenderTarget wraps the given texture as a framebuffer's color
// attachment.
func (dv *Device) CreateRenderTarget(tex transform.Texture) (transform.RenderTarget, error) {
	tx, ok := tex.(*Texture)
	if !ok {
		return nil, errors.Log(errors.New("gldevice: render target texture must be a gldevice texture"))
	}
	rt := &RenderTarget{}
	gl.GenFramebuffers(1, &rt.fbo)
	if err := rt.SetTexture(tx); err != nil {
		rt.Release()
		return nil, err
	}
	return rt, nil
}

func (rt *RenderTarget) Texture() transform.Texture { return rt.tex }

// SetTexture replaces the color attachment, resizing the target to
// the texture dimensions.
func (rt *RenderTarget) SetTexture(tex transform.Texture) error {
	tx, ok := tex.(*Texture)
	if !ok {
		return errors.Log(errors.New("gldevice: render target texture must be a gldevice texture"))
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tx.id, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return errors.Log(fmt.Errorf("gldevice: framebuffer incomplete: 0x%04x", status))
	}
	rt.tex = tx
	return nil
}

// ReadPixels reads back the full target as 4 channel pixels in the
// component type of the texture format, stalling until prior device
// work has completed.
func (rt *RenderTarget) ReadPixels() ([]byte, error) {
	sz := rt.tex.size
	pixType := glType(rt.tex.format.Type)
	out := make([]byte, sz.X*sz.Y*4*rt.tex.format.Type.Bytes())
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.ReadPixels(0, 0, int32(sz.X), int32(sz.Y), gl.RGBA, pixType, gl.Ptr(out))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if err := errors.Log(checkError("ReadPixels")); err != nil {
		return nil, err
	}
	return out, nil
}

func (rt *RenderTarget) Release() {
	if rt.fbo != 0 {
		gl.DeleteFramebuffers(1, &rt.fbo)
		rt.fbo = 0
	}
}
