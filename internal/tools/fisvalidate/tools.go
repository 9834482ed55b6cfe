// Package fisvalidate exposes AWS Fault Injection Service catalog tools:
// listing available actions for a region and validating experiment templates
// against that catalog. Both are opt-in via ENABLE_ADDITIONAL_TOOLS since
// they reach out to AWS.
package fisvalidate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	filecache "github.com/genaiops/mcp-genai-cost/internal/cache"
	"github.com/genaiops/mcp-genai-cost/internal/registry"
	"github.com/genaiops/mcp-genai-cost/internal/tools"
)

const defaultRegion = "us-east-1"

var (
	storeOnce sync.Once
	store     *catalogStore
	storeErr  error
)

// sharedStore lazily builds the catalog store backed by the user cache dir.
func sharedStore() (*catalogStore, error) {
	storeOnce.Do(func() {
		dir, err := filecache.DefaultCacheDir("mcp-genai-cost")
		if err != nil {
			storeErr = fmt.Errorf("failed to resolve cache directory: %w", err)
			return
		}
		fc, err := filecache.NewFileCache(dir, catalogTTL)
		if err != nil {
			storeErr = fmt.Errorf("failed to create FIS catalog cache: %w", err)
			return
		}
		store = newCatalogStore(fc)
	})
	return store, storeErr
}

func init() {
	registry.Register(&ListActionsTool{})
	registry.Register(&ValidateTemplateTool{})
}

// ListActionsTool returns the FIS action catalog for a region.
type ListActionsTool struct{}

// Definition returns the tool's definition for MCP registration
func (t *ListActionsTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"list_fis_actions",
		mcp.WithDescription(`List AWS Fault Injection Service actions and target resource types for a region.

Results are cached on disk for 24 hours. If AWS is unreachable and a stale cache exists, the stale data is returned with its cache status marked accordingly.`),
		mcp.WithString("region",
			mcp.Description("AWS region to list FIS actions for (default: us-east-1)"),
			mcp.DefaultString(defaultRegion),
		),
	)
}

// Execute executes the list_fis_actions tool
func (t *ListActionsTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	logger.Info("Executing list-fis-actions tool")

	region := defaultRegion
	if regionRaw, ok := args["region"].(string); ok && regionRaw != "" {
		region = regionRaw
	}

	catalogs, err := sharedStore()
	if err != nil {
		return nil, err
	}

	catalog, freshness, err := catalogs.get(ctx, logger, region)
	if err != nil {
		return nil, fmt.Errorf("failed to get FIS catalog for %s: %w", region, err)
	}

	logger.WithFields(logrus.Fields{
		"region":         region,
		"actions":        len(catalog.Actions),
		"resource_types": len(catalog.ResourceTypes),
		"cache_status":   freshness,
	}).Info("FIS catalog retrieved")

	response := struct {
		*Catalog
		CacheStatus filecache.Freshness `json:"cache_status"`
	}{catalog, freshness}

	payload, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal FIS catalog: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// ProvideExtendedInfo provides detailed usage information for the list_fis_actions tool
func (t *ListActionsTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "List FIS actions in the default region",
				Arguments:   map[string]interface{}{},
				ExpectedResult: "JSON catalog of FIS actions (aws:ec2:stop-instances, aws:ecs:drain-container-instances, ...) " +
					"and the resource types they target, for us-east-1",
			},
			{
				Description: "List FIS actions in another region",
				Arguments: map[string]interface{}{
					"region": "eu-west-1",
				},
				ExpectedResult: "Catalog for eu-west-1, served from the on-disk cache when fetched within the last 24 hours",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Failed to list FIS actions / credential errors",
				Solution: "The tool needs valid AWS credentials with fis:ListActions permission. Configure them via the standard AWS environment variables or shared config.",
			},
			{
				Problem:  "cache_status is stale",
				Solution: "AWS was unreachable so the last cached catalog was returned. Retry once connectivity or credentials are restored to refresh it.",
			},
		},
		ParameterDetails: map[string]string{
			"region": "AWS region to query (default us-east-1). Each region has its own cache entry.",
		},
		WhenToUse:    "Use before generating chaos engineering experiments to ground them in the FIS actions actually available in the target region.",
		WhenNotToUse: "Not needed for pure source scans; it exists to support experiment template generation and validation.",
	}
}

// ValidateTemplateTool validates a FIS experiment template against the catalog.
type ValidateTemplateTool struct{}

// Definition returns the tool's definition for MCP registration
func (t *ValidateTemplateTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"validate_fis_template",
		mcp.WithDescription(`Validate a FIS experiment template's action IDs and resource types against the AWS FIS catalog.

Does NOT validate IAM permissions, ARNs, or experiment design. Accepts both the FIS API template shape and the CloudFormation resource shape.`),
		mcp.WithObject("template",
			mcp.Required(),
			mcp.Description("FIS experiment template as a JSON object"),
		),
		mcp.WithString("region",
			mcp.Description("AWS region whose catalog to validate against (default: us-east-1)"),
			mcp.DefaultString(defaultRegion),
		),
	)
}

// Execute executes the validate_fis_template tool
func (t *ValidateTemplateTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	logger.Info("Executing validate-fis-template tool")

	template, ok := args["template"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing required parameter: template (must be a JSON object)")
	}
	region := defaultRegion
	if regionRaw, ok := args["region"].(string); ok && regionRaw != "" {
		region = regionRaw
	}

	catalogs, err := sharedStore()
	if err != nil {
		return nil, err
	}

	catalog, _, err := catalogs.get(ctx, logger, region)
	if err != nil {
		// Validation can still report its scope limitation with an empty
		// catalog, matching the warning-only contract.
		logger.WithError(err).WithField("region", region).Warn("FIS catalog unavailable, validating against empty catalog")
		catalog = &Catalog{Region: region, LastUpdated: time.Time{}}
	}

	result := validateTemplate(template, catalog)

	logger.WithFields(logrus.Fields{
		"region": region,
		"valid":  result.Valid,
		"errors": len(result.Errors),
	}).Info("FIS template validated")

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// ProvideExtendedInfo provides detailed usage information for the validate_fis_template tool
func (t *ValidateTemplateTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Validate a template using the FIS API shape",
				Arguments: map[string]interface{}{
					"template": map[string]interface{}{
						"actions": map[string]interface{}{
							"stopInstances": map[string]interface{}{"actionId": "aws:ec2:stop-instances"},
						},
						"targets": map[string]interface{}{
							"instances": map[string]interface{}{"resourceType": "aws:ec2:instance"},
						},
					},
				},
				ExpectedResult: "valid: true with warnings describing the validation scope",
			},
			{
				Description: "Catch a typo in an action ID",
				Arguments: map[string]interface{}{
					"template": map[string]interface{}{
						"actions": map[string]interface{}{
							"bad": map[string]interface{}{"actionId": "aws:ec2:stop-instance"},
						},
					},
				},
				ExpectedResult: "valid: false with the misspelled action listed under invalid_actions",
			},
		},
		ParameterDetails: map[string]string{
			"template": "The FIS experiment template as a JSON object (required). Both lowercase FIS API keys and CloudFormation Resources/Properties keys are understood.",
			"region":   "Region whose action catalog to validate against (default us-east-1).",
		},
		WhenToUse:    "Use on generated or hand-written FIS experiment templates before creating them, to catch invalid action IDs and resource types early.",
		WhenNotToUse: "Does not check IAM permissions, target ARNs, stop conditions or whether the experiment is a good idea.",
	}
}
