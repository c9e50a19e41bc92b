package tools

import (
	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolFindRecipes    ToolName = "find_recipes"
	ToolDisplayRecipes ToolName = "display_recipes"
)

// Registry holds a set of named tools and exposes them for execution.
type Registry struct {
	tools map[string]schema.Tool
}

// AllTools returns a ToolList with its own copy of the registry's tools.
func (r *Registry) AllTools() *ToolList {
	list := ToolList{tools: make(map[string]schema.Tool, len(r.tools))}
	for k, t := range r.tools {
		list.tools[k] = t
	}
	return &list
}
