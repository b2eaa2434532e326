// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "sort"

// Catalog maps system prompt names to prompt bodies. It is immutable; a
// reload builds a new one.
type Catalog struct {
	prompts map[string]string
	names   []string
}

// NewCatalog copies prompts into a catalog.
func NewCatalog(prompts map[string]string) Catalog {
	c := Catalog{prompts: make(map[string]string, len(prompts))}
	for name, body := range prompts {
		c.prompts[name] = body
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

// Resolve returns the body stored under name.
func (c Catalog) Resolve(name string) (string, bool) {
	body, ok := c.prompts[name]
	return body, ok
}

// Names returns the prompt names in sorted order.
func (c Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of prompts.
func (c Catalog) Len() int {
	return len(c.names)
}
