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

// Capture is a transform feedback object binding a program's captured
// outputs (varyings) to buffers.
type Capture struct {
	tfo  uint32
	prog *Program
}

// CreateCapture creates a transform feedback object binding the given
// program's varyings to the given buffers by name.
func (dv *Device) CreateCapture(prog transform.Program, buffers map[string]transform.Buffer) (transform.Capture, error) {
	pg, ok := prog.(*Program)
	if !ok {
		return nil, errors.Log(errors.New("gldevice: capture program must be a gldevice program"))
	}
	cp := &Capture{prog: pg}
	gl.GenTransformFeedbacks(1, &cp.tfo)
	if err := cp.SetBuffers(buffers); err != nil {
		cp.Release()
		return nil, err
	}
	return cp, nil
}

// SetBuffers rebinds the named buffers to the program's varying slots
// in place; object identity is retained.
func (cp *Capture) SetBuffers(buffers map[string]transform.Buffer) error {
	gl.BindTransformFeedback(gl.TRANSFORM_FEEDBACK, cp.tfo)
	defer gl.BindTransformFeedback(gl.TRANSFORM_FEEDBACK, 0)
	for name, buf := range buffers {
		idx := cp.prog.varyingIndex(name)
		if idx < 0 {
			// a buffer for an output the program does not capture is
			// left unbound rather than failing the whole set
			continue
		}
		bf, ok := buf.(*Buffer)
		if !ok || bf.id == 0 {
			return errors.Log(fmt.Errorf("gldevice: capture binding %q is not a live gldevice buffer", name))
		}
		gl.BindBufferBase(gl.TRANSFORM_FEEDBACK_BUFFER, uint32(idx), bf.id)
	}
	return checkError("SetBuffers")
}

func (cp *Capture) Release() {
	if cp.tfo != 0 {
		gl.DeleteTransformFeedbacks(1, &cp.tfo)
		cp.tfo = 0
	}
}
