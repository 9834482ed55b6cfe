package fisvalidate

import (
	"fmt"
	"sort"
	"time"
)

// ValidationResult reports whether a template's action IDs and resource
// types exist in the FIS catalog. It deliberately does not cover IAM
// permissions, ARNs or experiment design.
type ValidationResult struct {
	Valid                bool     `json:"valid"`
	Errors               []string `json:"errors"`
	Warnings             []string `json:"warnings"`
	InvalidActions       []string `json:"invalid_actions"`
	InvalidResourceTypes []string `json:"invalid_resource_types"`
	ValidationTimestamp  string   `json:"validation_timestamp"`
}

// extractActionIDs pulls action IDs out of a template. Both the FIS API
// shape (top-level "actions" with "actionId") and the CloudFormation shape
// ("Resources" -> "Properties" -> "Actions" -> "ActionId") are understood.
// Malformed nodes are skipped, never fatal.
func extractActionIDs(template map[string]any) map[string]struct{} {
	ids := map[string]struct{}{}

	if actions, ok := template["actions"].(map[string]any); ok {
		for _, raw := range actions {
			if action, ok := raw.(map[string]any); ok {
				if id, ok := action["actionId"].(string); ok && id != "" {
					ids[id] = struct{}{}
				}
			}
		}
	}

	if resources, ok := template["Resources"].(map[string]any); ok {
		for _, raw := range resources {
			resource, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			properties, ok := resource["Properties"].(map[string]any)
			if !ok {
				continue
			}
			actions, ok := properties["Actions"].(map[string]any)
			if !ok {
				continue
			}
			for _, rawAction := range actions {
				if action, ok := rawAction.(map[string]any); ok {
					if id, ok := action["ActionId"].(string); ok && id != "" {
						ids[id] = struct{}{}
					}
				}
			}
		}
	}

	return ids
}

// extractResourceTypes pulls target resource types out of a template,
// understanding the same two shapes as extractActionIDs.
func extractResourceTypes(template map[string]any) map[string]struct{} {
	types := map[string]struct{}{}

	if targets, ok := template["targets"].(map[string]any); ok {
		for _, raw := range targets {
			if target, ok := raw.(map[string]any); ok {
				if rt, ok := target["resourceType"].(string); ok && rt != "" {
					types[rt] = struct{}{}
				}
			}
		}
	}

	if resources, ok := template["Resources"].(map[string]any); ok {
		for _, raw := range resources {
			resource, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			properties, ok := resource["Properties"].(map[string]any)
			if !ok {
				continue
			}
			targets, ok := properties["Targets"].(map[string]any)
			if !ok {
				continue
			}
			for _, rawTarget := range targets {
				if target, ok := rawTarget.(map[string]any); ok {
					if rt, ok := target["ResourceType"].(string); ok && rt != "" {
						types[rt] = struct{}{}
					}
				}
			}
		}
	}

	return types
}

// validateTemplate checks the template's action IDs and resource types
// against the catalog. Unknown identifiers fail validation; an empty catalog
// only produces a warning since there is nothing to validate against.
func validateTemplate(template map[string]any, catalog *Catalog) *ValidationResult {
	result := &ValidationResult{
		Valid:                true,
		Errors:               []string{},
		Warnings:             []string{},
		InvalidActions:       []string{},
		InvalidResourceTypes: []string{},
		ValidationTimestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	templateActions := extractActionIDs(template)
	templateResourceTypes := extractResourceTypes(template)

	validActions := map[string]struct{}{}
	for _, action := range catalog.Actions {
		validActions[action.ID] = struct{}{}
	}
	validResourceTypes := map[string]struct{}{}
	for _, rt := range catalog.ResourceTypes {
		validResourceTypes[rt] = struct{}{}
	}

	if len(validActions) == 0 && len(validResourceTypes) == 0 {
		result.Warnings = append(result.Warnings,
			"No FIS capabilities available for validation. Please refresh the catalog with current AWS data.")
		return result
	}

	for id := range templateActions {
		if _, ok := validActions[id]; !ok {
			result.InvalidActions = append(result.InvalidActions, id)
		}
	}
	sort.Strings(result.InvalidActions)
	for _, id := range result.InvalidActions {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Invalid action ID: '%s'. This action is not available in the current AWS FIS capabilities.", id))
	}

	for rt := range templateResourceTypes {
		if _, ok := validResourceTypes[rt]; !ok {
			result.InvalidResourceTypes = append(result.InvalidResourceTypes, rt)
		}
	}
	sort.Strings(result.InvalidResourceTypes)
	for _, rt := range result.InvalidResourceTypes {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Invalid resource type: '%s'. This resource type is not supported by AWS FIS.", rt))
	}

	if len(templateActions) > 0 && len(validActions) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Validated %d action IDs against %d available FIS actions.",
			len(templateActions), len(validActions)))
	}
	if len(templateResourceTypes) > 0 && len(validResourceTypes) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Validated %d resource types against %d available resource types.",
			len(templateResourceTypes), len(validResourceTypes)))
	}
	result.Warnings = append(result.Warnings,
		"Validation covers only action IDs and resource types. IAM permissions, ARNs, and business logic are not validated.")

	return result
}
