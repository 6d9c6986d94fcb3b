// internal/dataapi/schema.go
package dataapi

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"nutrisaur-workers/internal/dataapi/queries"
)

const requestSchemaJSON = `{
	"type": "object",
	"required": ["action"],
	"additionalProperties": false,
	"properties": {
		"action": {
			"type": "string",
			"enum": [
				"connection_test",
				"dashboard_aggregate",
				"screening_records",
				"sample_record",
				"community_metrics",
				"risk_distribution",
				"save_screening"
			]
		},
		"params": {"type": "object"}
	}
}`

const barangayParamsJSON = `{
	"type": "object",
	"required": ["barangay"],
	"properties": {
		"barangay": {"type": "string", "minLength": 1}
	}
}`

const saveScreeningParamsJSON = `{
	"type": "object",
	"required": ["email", "risk_score"],
	"properties": {
		"email": {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"},
		"risk_score": {"type": "number", "minimum": 0},
		"screening_data": {"type": "object"}
	}
}`

var (
	requestSchema *gojsonschema.Schema
	paramSchemas  map[string]*gojsonschema.Schema
)

func init() {
	requestSchema = mustCompile(requestSchemaJSON)
	paramSchemas = map[string]*gojsonschema.Schema{
		queries.ActionCommunityMetrics: mustCompile(barangayParamsJSON),
		queries.ActionRiskDistribution: mustCompile(barangayParamsJSON),
		queries.ActionSaveScreening:    mustCompile(saveScreeningParamsJSON),
	}
}

func mustCompile(schemaJSON string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// validateRequest checks the envelope shape plus the per-action params.
func validateRequest(action string, body map[string]interface{}) error {
	result, err := requestSchema.Validate(gojsonschema.NewGoLoader(body))
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid request: %s", joinSchemaErrors(result))
	}

	schema, ok := paramSchemas[action]
	if !ok {
		return nil
	}
	params, _ := body["params"].(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}
	result, err = schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("validate params: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid params: %s", joinSchemaErrors(result))
	}
	return nil
}

func joinSchemaErrors(result *gojsonschema.Result) string {
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return strings.Join(msgs, "; ")
}
