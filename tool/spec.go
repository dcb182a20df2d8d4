//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package tool

// FunctionSpec is the function block of an exported tool declaration.
type FunctionSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Spec is the function-calling declaration for one tool.
type Spec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// NewSpec builds the declaration for a single tool.
func NewSpec(t Tool) Spec {
	return Spec{
		Type: "function",
		Function: FunctionSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		},
	}
}

// Specs exports every registered tool as a function declaration, in
// registration order.
func (r *Registry) Specs() []Spec {
	tools := r.List()
	specs := make([]Spec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, NewSpec(t))
	}
	return specs
}
