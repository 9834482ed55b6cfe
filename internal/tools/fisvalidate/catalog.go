package fisvalidate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/fis"
	"github.com/sirupsen/logrus"

	filecache "github.com/genaiops/mcp-genai-cost/internal/cache"
)

const catalogTTL = 24 * time.Hour

// actionsAPI is the slice of the FIS client the catalog needs.
type actionsAPI interface {
	ListActions(ctx context.Context, params *fis.ListActionsInput, optFns ...func(*fis.Options)) (*fis.ListActionsOutput, error)
}

// Action is one fault injection action from the FIS catalog.
type Action struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Targets     []string `json:"targets,omitempty"`
}

// Catalog holds the FIS capabilities for one region.
type Catalog struct {
	Actions       []Action  `json:"fis_actions"`
	ResourceTypes []string  `json:"resource_types"`
	LastUpdated   time.Time `json:"last_updated"`
	Region        string    `json:"region"`
}

// catalogStore fetches the FIS action catalog, caching results on disk so
// repeated validations do not hammer the ListActions API. A fresh catalog is
// also held in memory so validations within one session skip the disk read.
type catalogStore struct {
	cache     *filecache.FileCache
	mem       *filecache.Cache
	newClient func(ctx context.Context, region string) (actionsAPI, error)
}

func newCatalogStore(cache *filecache.FileCache) *catalogStore {
	return &catalogStore{
		cache: cache,
		mem:   filecache.NewCache(catalogTTL),
		newClient: func(ctx context.Context, region string) (actionsAPI, error) {
			cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
			}
			return fis.NewFromConfig(cfg), nil
		},
	}
}

func catalogKey(region string) string {
	return "fis_actions_" + region
}

// get returns the catalog for a region. Fresh cache entries are returned
// without touching AWS. Stale or empty entries trigger a fetch; if the fetch
// fails, any stale data is returned together with the error so callers can
// decide how hard to fail.
func (s *catalogStore) get(ctx context.Context, logger *logrus.Logger, region string) (*Catalog, filecache.Freshness, error) {
	if v, ok := s.mem.Get(catalogKey(region)); ok {
		if catalog, ok := v.(*Catalog); ok {
			return catalog, filecache.Fresh, nil
		}
	}

	var cached Catalog
	freshness, err := s.cache.Get(catalogKey(region), &cached)
	if err != nil {
		logger.WithError(err).WithField("region", region).Warn("Failed to read FIS catalog cache")
		freshness = filecache.Empty
	}
	if freshness == filecache.Fresh {
		s.mem.Set(catalogKey(region), &cached)
		return &cached, freshness, nil
	}

	catalog, fetchErr := s.fetch(ctx, region)
	if fetchErr != nil {
		if freshness == filecache.Stale {
			logger.WithError(fetchErr).WithField("region", region).Warn("FIS fetch failed, returning stale catalog")
			return &cached, filecache.Stale, nil
		}
		return nil, filecache.Empty, fetchErr
	}

	if putErr := s.cache.Put(catalogKey(region), catalog); putErr != nil {
		logger.WithError(putErr).WithField("region", region).Warn("Failed to write FIS catalog cache")
	}
	s.mem.Set(catalogKey(region), catalog)
	return catalog, filecache.Fresh, nil
}

// fetch pulls the full action list from AWS FIS, paginating until done.
// Resource types are collected from each action's target definitions.
func (s *catalogStore) fetch(ctx context.Context, region string) (*Catalog, error) {
	client, err := s.newClient(ctx, region)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{
		Region:      region,
		LastUpdated: time.Now().UTC(),
	}
	resourceTypes := map[string]struct{}{}

	var nextToken *string
	for {
		out, err := client.ListActions(ctx, &fis.ListActionsInput{
			MaxResults: aws.Int32(100),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list FIS actions in %s: %w", region, err)
		}
		for _, summary := range out.Actions {
			action := Action{ID: aws.ToString(summary.Id)}
			if summary.Description != nil {
				action.Description = *summary.Description
			}
			for _, target := range summary.Targets {
				rt := aws.ToString(target.ResourceType)
				if rt == "" {
					continue
				}
				action.Targets = append(action.Targets, rt)
				resourceTypes[rt] = struct{}{}
			}
			sort.Strings(action.Targets)
			catalog.Actions = append(catalog.Actions, action)
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	sort.Slice(catalog.Actions, func(i, j int) bool {
		return catalog.Actions[i].ID < catalog.Actions[j].ID
	})
	for rt := range resourceTypes {
		catalog.ResourceTypes = append(catalog.ResourceTypes, rt)
	}
	sort.Strings(catalog.ResourceTypes)
	return catalog, nil
}
