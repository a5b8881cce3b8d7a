// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import "log/slog"

// Releaser is any owned device resource that can be freed.
type Releaser interface {
	Release()
}

// registry tracks the device resources this instance created and
// therefore owns: auto-created feedback buffers, the element-index
// buffer, cloned target textures, render targets, and capture objects.
// It is the single disposal authority for them. Caller-supplied
// buffers and textures are borrowed and never enter the registry.
type registry struct {
	owned map[string]Releaser
}

// set installs a resource under the given name. A superseded resource
// of the same name is released first, never silently orphaned.
func (rg *registry) set(name string, r Releaser) {
	if rg.owned == nil {
		rg.owned = make(map[string]Releaser)
	}
	if old, ok := rg.owned[name]; ok && old != r {
		if Debug {
			slog.Debug("transform: registry replacing resource", "name", name)
		}
		old.Release()
	}
	rg.owned[name] = r
}

// release frees every tracked resource exactly once and empties
// the registry.
func (rg *registry) release() {
	for _, r := range rg.owned {
		r.Release()
	}
	rg.owned = nil
}
