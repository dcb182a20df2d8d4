//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/spice-go/log"
)

// OpenAITools converts the given tools into OpenAI chat-completion tool
// parameters. Tools whose schema cannot be converted are skipped with a log
// entry rather than failing the whole export.
func OpenAITools(tools []Tool) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, t := range tools {
		// Round-trip the schema through JSON to map it onto OpenAI's
		// expected parameter format.
		schemaBytes, err := json.Marshal(t.Schema())
		if err != nil {
			log.Errorf("failed to marshal tool schema for %s: %v", t.Name(), err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("failed to unmarshal tool schema for %s: %v", t.Name(), err)
			continue
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name(),
				Description: openai.String(t.Description()),
				Parameters:  parameters,
			},
		})
	}
	return result
}

// OpenAISpecs exports the registry contents as OpenAI tool parameters, in
// registration order.
func (r *Registry) OpenAISpecs() []openai.ChatCompletionToolParam {
	return OpenAITools(r.List())
}
