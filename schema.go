package stepwise

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Response-shape schemas, validated advisorily: the engine tolerates extra
// and missing optional keys by design, so a validation failure is recorded
// but never rejects a response. The normalizer remains the authority on what
// the response means.

var responseSchemas = map[callKind]string{
	callPlan: `{
		"type": "object",
		"properties": {
			"goals": {"type": "array"},
			"steps": {"type": "array"},
			"branch_steps": {"type": "array"},
			"decision": {"type": "object"}
		}
	}`,
	callBranch: `{
		"type": "object",
		"properties": {
			"steps": {"type": "array"},
			"decision": {"type": "object"}
		}
	}`,
	callEvaluate: `{
		"type": "object",
		"properties": {
			"score": {"type": "number"},
			"comments": {"type": "string"},
			"revised_steps": {"type": "array"}
		}
	}`,
	callProgressReview: `{
		"type": "object",
		"properties": {
			"should_replan": {"type": "boolean"},
			"reason": {"type": "string"},
			"steps": {"type": "array"}
		}
	}`,
	callSelfCheck: `{
		"type": "object",
		"properties": {
			"action": {"type": "string"},
			"confidence": {"type": "number"},
			"steps": {"type": "array"}
		}
	}`,
	callAdapt: `{
		"type": "object",
		"properties": {
			"should_adapt": {"type": "boolean"},
			"reason": {"type": "string"},
			"steps": {"type": "array"}
		}
	}`,
	callVerify: `{
		"type": "object",
		"properties": {
			"verdict": {"type": "string", "enum": ["pass", "partial", "fail"]},
			"evidence": {"type": "array"},
			"missing": {"type": "array"},
			"follow_up": {"type": "array"}
		}
	}`,
}

var (
	schemaOnce     sync.Once
	compiledSchema map[callKind]*jsonschema.Schema
)

func compiledSchemas() map[callKind]*jsonschema.Schema {
	schemaOnce.Do(func() {
		compiledSchema = make(map[callKind]*jsonschema.Schema, len(responseSchemas))
		compiler := jsonschema.NewCompiler()
		for kind, text := range responseSchemas {
			doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
			if err != nil {
				continue
			}
			name := fmt.Sprintf("stepwise://%s.json", kind)
			if err := compiler.AddResource(name, doc); err != nil {
				continue
			}
			sch, err := compiler.Compile(name)
			if err != nil {
				continue
			}
			compiledSchema[kind] = sch
		}
	})
	return compiledSchema
}

// validateShape checks a decoded response against the advertised schema for
// the call kind. The result is advisory: callers log a mismatch and proceed.
// Calls without a registered schema always pass.
func validateShape(kind callKind, value any) error {
	sch, ok := compiledSchemas()[kind]
	if !ok {
		return nil
	}
	return sch.Validate(value)
}
