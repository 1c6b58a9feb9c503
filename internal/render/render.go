// Package render writes structured command output for doctor --json.
package render

import (
	"encoding/json"
	"io"
)

// Format represents an output format.
type Format string

const (
	FormatJSON Format = "json"
)

// Options for rendering.
type Options struct {
	Format    Format
	Porcelain bool
}

// Renderer handles output rendering.
type Renderer struct {
	writer io.Writer
	opts   Options
}

// NewRenderer creates a new renderer.
func NewRenderer(writer io.Writer, opts Options) *Renderer {
	return &Renderer{
		writer: writer,
		opts:   opts,
	}
}

// RenderJSON renders data as JSON.
func (r *Renderer) RenderJSON(data interface{}) error {
	encoder := json.NewEncoder(r.writer)
	if !r.opts.Porcelain {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}
