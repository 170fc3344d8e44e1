package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"heatmanager-data/internal/domain"
	"heatmanager-data/internal/repository"
	"heatmanager-data/internal/store"
	"heatmanager-data/internal/thingsboard"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Per-call deadlines for upstream fetches. Only the asset list is
// fatal on failure; everything else degrades to empty results.
const (
	assetListTimeout    = 15 * time.Second
	relationTimeout     = 10 * time.Second
	deviceDetailTimeout = 10 * time.Second
	attributeTimeout    = 5 * time.Second

	// fanOutLimit bounds concurrent upstream requests per run so a
	// customer with thousands of assets cannot exhaust sockets.
	fanOutLimit = 32
)

// SyncService rebuilds a customer's structure tree from ThingsBoard
// and persists it as the customer's snapshot.
type SyncService struct {
	tb       *thingsboard.Client
	settings repository.CustomerSettingsRepository
	devices  *store.DeviceCache
	slog     *StructureLog
	logger   *zap.Logger
}

func NewSyncService(
	tb *thingsboard.Client,
	settings repository.CustomerSettingsRepository,
	devices *store.DeviceCache,
	slog *StructureLog,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		tb:       tb,
		settings: settings,
		devices:  devices,
		slog:     slog,
		logger:   logger,
	}
}

// SyncSummary is the per-run accounting written to the structure log
// and returned to the caller as debug counters.
type SyncSummary struct {
	TotalAssets          int `json:"totalAssets"`
	RootAssets           int `json:"rootAssets"`
	TotalDevices         int `json:"totalDevices"`
	DevicesWithDetails   int `json:"devicesWithDetails"`
	AttributesSuccessful int `json:"attributesSuccessful"`
	AttributesFailed     int `json:"attributesFailed"`
	AssetsWithChildren   int `json:"assetsWithChildren"`
	AssetsWithParent     int `json:"assetsWithParent"`
}

type SyncResult struct {
	SessionID string
	Tree      []*domain.TreeNode
	Summary   SyncSummary
}

// Sync runs one full synchronization. The whole run shares ctx: every
// in-flight sub-request is cancelled together when ctx is. On error
// the previously persisted tree stays untouched.
func (s *SyncService) Sync(ctx context.Context, customerID, token string) (*SyncResult, error) {
	sess := s.slog.StartSession(customerID)
	result, err := s.run(ctx, sess, customerID, token)
	if err != nil {
		sess.Error("error fetching asset tree", err)
		sess.End(map[string]any{"error": err.Error()})
		return nil, err
	}
	sess.End(result.Summary)
	return result, nil
}

func (s *SyncService) run(ctx context.Context, sess *SyncSession, customerID, token string) (*SyncResult, error) {
	sess.Info("Fetching assets list from ThingsBoard", nil)
	actx, cancel := context.WithTimeout(ctx, assetListTimeout)
	assets, err := s.tb.CustomerAssets(actx, token, customerID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetch assets: %w", err)
	}
	sess.Info(fmt.Sprintf("Fetched %d assets", len(assets)), map[string]any{"assetCount": len(assets)})

	relations := s.resolveRelations(ctx, sess, token, assets)

	deviceIDs := dedupeDeviceIDs(relations)
	sess.Info(fmt.Sprintf("Found %d unique device IDs", len(deviceIDs)), map[string]any{"deviceCount": len(deviceIDs)})

	details := s.fetchDeviceDetails(ctx, sess, token, deviceIDs)

	attributes, attrsOK, attrsFailed := s.fetchAttributes(ctx, sess, token, assets)
	sess.Info(fmt.Sprintf("Asset attributes processed: %d successful, %d failed", attrsOK, attrsFailed),
		map[string]any{"successful": attrsOK, "failed": attrsFailed})

	tree := buildForest(assets, relations, details, attributes, sess)

	total, withChildren := countNodes(tree)
	summary := SyncSummary{
		TotalAssets:          len(assets),
		RootAssets:           len(tree),
		TotalDevices:         len(deviceIDs),
		DevicesWithDetails:   len(details),
		AttributesSuccessful: attrsOK,
		AttributesFailed:     attrsFailed,
		AssetsWithChildren:   withChildren,
		AssetsWithParent:     total - len(tree),
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	if err := s.settings.SaveTree(ctx, customerID, raw); err != nil {
		return nil, fmt.Errorf("save tree: %w", err)
	}
	sess.Info("Tree structure created successfully", map[string]any{"rootAssets": len(tree)})

	return &SyncResult{SessionID: sess.ID, Tree: tree, Summary: summary}, nil
}

// resolveRelations fans out the two relation queries for every asset.
// Each call is individually fault-tolerant; the fan-out itself never
// fails.
func (s *SyncService) resolveRelations(ctx context.Context, sess *SyncSession, token string, assets []domain.AssetInfo) []AssetRelations {
	sess.Info(fmt.Sprintf("Fetching relations for %d assets", len(assets)), nil)

	relations := make([]AssetRelations, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for i, asset := range assets {
		relations[i].AssetID = asset.ID.ID

		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, relationTimeout)
			defer cancel()
			rels, err := s.tb.RelationsFrom(rctx, token, asset.ID.ID)
			if err != nil {
				sess.Warn("asset relations fetch failed", map[string]any{
					"assetId":   asset.ID.ID,
					"assetName": asset.Name,
					"error":     err.Error(),
				})
				return nil
			}
			relations[i].AssetRelations = rels
			return nil
		})

		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, relationTimeout)
			defer cancel()
			rels, err := s.tb.DeviceRelations(rctx, token, asset.ID.ID)
			if err != nil {
				sess.Warn("device relations fetch failed", map[string]any{
					"assetId":   asset.ID.ID,
					"assetName": asset.Name,
					"error":     err.Error(),
				})
				return nil
			}
			kept := rels[:0]
			for _, r := range rels {
				if r.To.EntityType == domain.EntityTypeDevice && r.To.ID != "" {
					kept = append(kept, r)
				}
			}
			relations[i].DeviceRelations = kept
			return nil
		})
	}
	_ = g.Wait() // barrier join; sub-requests never reject

	return relations
}

func dedupeDeviceIDs(relations []AssetRelations) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, rel := range relations {
		for _, dr := range rel.DeviceRelations {
			if dr.To.ID == "" || seen[dr.To.ID] {
				continue
			}
			seen[dr.To.ID] = true
			ids = append(ids, dr.To.ID)
		}
	}
	return ids
}

// fetchDeviceDetails loads each unique device once, consulting the
// detail cache first. Failed lookups are absent from the result map;
// referencing nodes fall back to placeholders.
func (s *SyncService) fetchDeviceDetails(ctx context.Context, sess *SyncSession, token string, deviceIDs []string) map[string]*domain.DeviceInfo {
	details := make(map[string]*domain.DeviceInfo, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return details
	}
	sess.Info(fmt.Sprintf("Fetching details for %d devices", len(deviceIDs)), nil)

	var (
		mu        sync.Mutex
		cacheHits int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for _, id := range deviceIDs {
		g.Go(func() error {
			if d, ok := s.devices.Get(gctx, id); ok {
				mu.Lock()
				details[id] = d
				cacheHits++
				mu.Unlock()
				return nil
			}

			dctx, cancel := context.WithTimeout(gctx, deviceDetailTimeout)
			defer cancel()
			d, err := s.tb.Device(dctx, token, id)
			if err != nil {
				sess.Warn("device detail fetch failed", map[string]any{
					"deviceId": id,
					"error":    err.Error(),
				})
				return nil
			}
			s.devices.Put(gctx, d)

			mu.Lock()
			details[id] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sess.Info(fmt.Sprintf("Device details received: %d successful", len(details)), map[string]any{
		"successful": len(details),
		"cacheHits":  cacheHits,
	})
	return details
}

var recognizedAttributes = func() map[string]bool {
	m := make(map[string]bool, len(domain.AttributeKeys))
	for _, k := range domain.AttributeKeys {
		m[k] = true
	}
	return m
}()

// fetchAttributes fans out the attribute query for every asset and
// keeps only the recognized keys. A failed or empty fetch counts as
// failed; the run continues either way.
func (s *SyncService) fetchAttributes(ctx context.Context, sess *SyncSession, token string, assets []domain.AssetInfo) (map[string]map[string]domain.Value, int, int) {
	sess.Info(fmt.Sprintf("Fetching attributes for %d assets", len(assets)), nil)

	results := make([]map[string]domain.Value, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for i, asset := range assets {
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, attributeTimeout)
			defer cancel()
			entries, err := s.tb.AssetAttributes(actx, token, asset.ID.ID)
			if err != nil {
				sess.Warn("attributes fetch failed", map[string]any{
					"assetId":   asset.ID.ID,
					"assetName": asset.Name,
					"error":     err.Error(),
				})
				return nil
			}
			results[i] = extractAttributes(entries)
			return nil
		})
	}
	_ = g.Wait()

	attributes := make(map[string]map[string]domain.Value, len(assets))
	success, failed := 0, 0
	for i, asset := range assets {
		if len(results[i]) > 0 {
			attributes[asset.ID.ID] = results[i]
			success++
		} else {
			failed++
		}
	}
	return attributes, success, failed
}

func extractAttributes(entries []domain.AttributeEntry) map[string]domain.Value {
	out := make(map[string]domain.Value)
	for _, e := range entries {
		if !recognizedAttributes[e.Key] || e.Value.IsNull() {
			continue
		}
		out[e.Key] = e.Value
	}
	return out
}

func countNodes(forest []*domain.TreeNode) (total, withChildren int) {
	for _, n := range forest {
		t, w := countNodes(n.Children)
		total += t + 1
		withChildren += w
		if len(n.Children) > 0 {
			withChildren++
		}
	}
	return total, withChildren
}
