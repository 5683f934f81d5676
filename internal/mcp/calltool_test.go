package mcp

import (
	"sort"
	"testing"
)

func TestGetToolSchemas(t *testing.T) {
	expectedTools := []string{
		"run_maven_tests", "analyze_coverage", "identify_uncovered_code", "prioritize_gaps",
		"generate_boundary_value_tests", "generate_equivalence_class_tests", "generate_test_template",
		"analyze_java_class", "detect_code_smells", "run_static_analysis",
		"git_status", "git_add_all", "git_commit", "git_push", "git_pull_request",
		"coverage_history",
	}

	for _, name := range expectedTools {
		schema, ok := toolSchemaRegistry[name]
		if !ok {
			t.Errorf("toolSchemaRegistry missing tool: %s", name)
			continue
		}
		if schema.Name != name {
			t.Errorf("schema name mismatch: got %q, want %q", schema.Name, name)
		}
		if schema.Description == "" {
			t.Errorf("tool %s has empty description", name)
		}
		if _, ok := toolHandlers[name]; !ok {
			t.Errorf("tool %s has no handler", name)
		}
	}

	if len(toolSchemaRegistry) != len(expectedTools) {
		t.Errorf("toolSchemaRegistry has %d tools, want %d", len(toolSchemaRegistry), len(expectedTools))
	}
	if len(toolHandlers) != len(expectedTools) {
		t.Errorf("toolHandlers has %d tools, want %d", len(toolHandlers), len(expectedTools))
	}
}

func TestToolSchemaParameters(t *testing.T) {
	// Verify required parameters are marked correctly
	tests := []struct {
		tool          string
		requiredParam string
	}{
		{"generate_boundary_value_tests", "class_path"},
		{"generate_boundary_value_tests", "method_name"},
		{"generate_boundary_value_tests", "param_ranges"},
		{"generate_equivalence_class_tests", "equivalence_classes"},
		{"generate_test_template", "method_name"},
		{"analyze_java_class", "class_path"},
		{"detect_code_smells", "class_path"},
		{"git_commit", "message"},
		{"git_pull_request", "title"},
	}

	for _, tt := range tests {
		schema, ok := toolSchemaRegistry[tt.tool]
		if !ok {
			t.Fatalf("missing tool: %s", tt.tool)
		}

		found := false
		for _, p := range schema.Parameters {
			if p.Name == tt.requiredParam {
				found = true
				if !p.Required {
					t.Errorf("tool %s param %s should be required", tt.tool, tt.requiredParam)
				}
			}
		}
		if !found {
			t.Errorf("tool %s missing parameter %s", tt.tool, tt.requiredParam)
		}
	}
}

func TestToolSchemaNoRequiredParams(t *testing.T) {
	// These tools have no required params
	noRequired := []string{
		"run_maven_tests", "analyze_coverage", "identify_uncovered_code", "prioritize_gaps",
		"run_static_analysis", "git_status", "git_add_all", "git_push", "coverage_history",
	}

	for _, name := range noRequired {
		schema := toolSchemaRegistry[name]
		for _, p := range schema.Parameters {
			if p.Required {
				t.Errorf("tool %s param %s is marked required but should not be", name, p.Name)
			}
		}
	}
}

func TestEveryToolTakesProjectOrRepo(t *testing.T) {
	pathless := map[string]bool{
		"generate_boundary_value_tests":    true,
		"generate_equivalence_class_tests": true,
		"generate_test_template":           true,
	}
	for name, schema := range toolSchemaRegistry {
		if pathless[name] {
			continue
		}
		found := false
		for _, p := range schema.Parameters {
			if p.Name == "project_path" || p.Name == "repo_path" {
				found = true
			}
		}
		if !found {
			t.Errorf("tool %s takes neither project_path nor repo_path", name)
		}
	}
}

func TestAllToolsMatchesRegistry(t *testing.T) {
	registryNames := ToolNames()

	allToolsCopy := make([]string, len(AllTools))
	copy(allToolsCopy, AllTools)
	sort.Strings(allToolsCopy)

	if len(registryNames) != len(allToolsCopy) {
		t.Errorf("schema registry has %d tools, AllTools has %d", len(registryNames), len(allToolsCopy))
	}

	for i, name := range registryNames {
		if i >= len(allToolsCopy) {
			t.Errorf("AllTools missing: %s", name)
			continue
		}
		if name != allToolsCopy[i] {
			t.Errorf("mismatch at index %d: registry=%s, AllTools=%s", i, name, allToolsCopy[i])
		}
	}
}

func TestToolDefinitionMatchesSchema(t *testing.T) {
	for name, schema := range toolSchemaRegistry {
		tool := toolDefinition(schema)
		if tool.Name != name {
			t.Errorf("definition name %q, want %q", tool.Name, name)
		}
		if tool.Description != schema.Description {
			t.Errorf("tool %s description differs from schema", name)
		}

		var required []string
		for _, p := range schema.Parameters {
			if _, ok := tool.InputSchema.Properties[p.Name]; !ok {
				t.Errorf("tool %s definition missing property %s", name, p.Name)
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		if len(tool.InputSchema.Properties) != len(schema.Parameters) {
			t.Errorf("tool %s has %d properties, schema has %d parameters", name, len(tool.InputSchema.Properties), len(schema.Parameters))
		}

		got := append([]string(nil), tool.InputSchema.Required...)
		sort.Strings(got)
		sort.Strings(required)
		if len(got) != len(required) {
			t.Errorf("tool %s required = %v, want %v", name, got, required)
			continue
		}
		for i := range got {
			if got[i] != required[i] {
				t.Errorf("tool %s required = %v, want %v", name, got, required)
				break
			}
		}
	}
}

func TestToolDefinitionArrayItems(t *testing.T) {
	tool := toolDefinition(toolSchemaRegistry["prioritize_gaps"])
	prop, ok := tool.InputSchema.Properties["exclude"].(map[string]any)
	if !ok {
		t.Fatalf("exclude property has type %T", tool.InputSchema.Properties["exclude"])
	}
	if prop["type"] != "array" {
		t.Errorf("exclude type = %v, want array", prop["type"])
	}
	if _, ok := prop["items"]; !ok {
		t.Error("exclude has no items schema")
	}
}
