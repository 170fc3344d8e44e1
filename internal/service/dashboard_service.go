package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"heatmanager-data/internal/domain"
	"heatmanager-data/internal/repository"

	"go.uber.org/zap"
)

// ErrNodeNotFound is returned when the requested node is not part of
// the customer's persisted tree.
var ErrNodeNotFound = errors.New("node not found in tree")

// DashboardService answers the device-sensor aggregation queries on
// top of the persisted structure snapshot and the reporting database.
type DashboardService struct {
	settings  repository.CustomerSettingsRepository
	telemetry repository.LatestTelemetryRepository
	logger    *zap.Logger
}

func NewDashboardService(
	settings repository.CustomerSettingsRepository,
	telemetry repository.LatestTelemetryRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{settings: settings, telemetry: telemetry, logger: logger}
}

// NodeAsset is one subtree node that carries devices, with its sensor
// readings resolved.
type NodeAsset struct {
	AssetID                 string   `json:"asset_id"`
	AssetName               string   `json:"asset_name"`
	AssetType               string   `json:"asset_type"`
	AssetLabel              string   `json:"asset_label"`
	PathString              string   `json:"path_string"`
	OperationalMode         int      `json:"operational_mode"`
	ExtTempDevice           string   `json:"ext_temp_device,omitempty"`
	Temperature             *float64 `json:"temperature"`
	TemperatureSource       string   `json:"temperature_source,omitempty"`
	Humidity                *float64 `json:"humidity"`
	HumiditySource          string   `json:"humidity_source,omitempty"`
	TargetTemperature       *float64 `json:"target_temperature"`
	TargetTemperatureSource string   `json:"target_temperature_source,omitempty"`
	DeviceCount             int      `json:"device_count"`
}

// NodeDevicesReport is the aggregation response for one subtree.
type NodeDevicesReport struct {
	NodeID    string `json:"node_id"`
	NodeName  string `json:"node_name"`
	NodeType  string `json:"node_type"`
	NodeLabel string `json:"node_label"`

	TotalAssets                 int  `json:"total_assets"`
	AssetsWithTemperature       int  `json:"assets_with_temperature"`
	AssetsWithExtTempDevice     int  `json:"assets_with_ext_temp_device"`
	AssetsWithAverageTemp       int  `json:"assets_with_average_temp"`
	AssetsWithHumidity          int  `json:"assets_with_humidity"`
	AssetsWithTargetTemperature int  `json:"assets_with_target_temperature"`
	IncludeTemperature          bool `json:"include_temperature"`

	Assets []NodeAsset `json:"assets"`
}

const (
	sourceExtTempDevice = "extTempDevice"
	sourceAverage       = "average"
)

// NodeDevices loads the customer's tree, locates nodeID and reports
// every device-carrying node of its subtree. With includeTemperature
// the current readings are resolved from the reporting database:
// operational modes 2 and 10 read the external temperature device,
// everything else averages across the node's devices (target
// temperature averages unless the mode is exactly 2).
func (s *DashboardService) NodeDevices(ctx context.Context, customerID, nodeID string, includeTemperature bool) (*NodeDevicesReport, error) {
	snapshot, err := s.settings.GetTree(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var forest []*domain.TreeNode
	if err := json.Unmarshal(snapshot.Tree, &forest); err != nil {
		return nil, fmt.Errorf("decode persisted tree: %w", err)
	}

	target := findNode(forest, nodeID)
	if target == nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, ErrNodeNotFound)
	}

	report := &NodeDevicesReport{
		NodeID:             nodeID,
		NodeName:           target.Name,
		NodeType:           target.Type,
		NodeLabel:          target.Label,
		IncludeTemperature: includeTemperature,
		Assets:             []NodeAsset{},
	}
	s.collectAssets(ctx, target, nil, includeTemperature, report)

	report.TotalAssets = len(report.Assets)
	for _, a := range report.Assets {
		if a.Temperature != nil {
			report.AssetsWithTemperature++
		}
		if a.ExtTempDevice != "" {
			report.AssetsWithExtTempDevice++
		}
		if a.TemperatureSource == sourceAverage {
			report.AssetsWithAverageTemp++
		}
		if a.Humidity != nil {
			report.AssetsWithHumidity++
		}
		if a.TargetTemperature != nil {
			report.AssetsWithTargetTemperature++
		}
	}
	return report, nil
}

func findNode(forest []*domain.TreeNode, nodeID string) *domain.TreeNode {
	for _, n := range forest {
		if n.ID == nodeID {
			return n
		}
		if found := findNode(n.Children, nodeID); found != nil {
			return found
		}
	}
	return nil
}

func (s *DashboardService) collectAssets(ctx context.Context, node *domain.TreeNode, path []string, includeTemperature bool, report *NodeDevicesReport) {
	currentPath := append(path, node.Label)

	if len(node.RelatedDevices) > 0 {
		asset := NodeAsset{
			AssetID:         node.ID,
			AssetName:       node.Name,
			AssetType:       node.Type,
			AssetLabel:      node.Label,
			PathString:      strings.Join(currentPath, " > "),
			OperationalMode: node.OperationalModeInt(),
			ExtTempDevice:   node.ExtTempDeviceID(),
			DeviceCount:     len(node.RelatedDevices),
		}
		if includeTemperature {
			asset.Temperature, asset.TemperatureSource = s.resolveReading(ctx, node, repository.KeySensorTemperature, false)
			asset.Humidity, asset.HumiditySource = s.resolveReading(ctx, node, repository.KeyRelativeHumidity, false)
			asset.TargetTemperature, asset.TargetTemperatureSource = s.resolveReading(ctx, node, repository.KeyTargetTemperature, true)
		}
		report.Assets = append(report.Assets, asset)
	}

	for _, child := range node.Children {
		s.collectAssets(ctx, child, currentPath, includeTemperature, report)
	}
}

// resolveReading applies the per-mode source selection. targetOnly2
// restricts the external-device path to operational mode 2, which is
// how target temperatures differ from plain sensor readings.
func (s *DashboardService) resolveReading(ctx context.Context, node *domain.TreeNode, key string, targetOnly2 bool) (*float64, string) {
	mode := node.OperationalModeInt()
	useExt := mode == 2 || (!targetOnly2 && mode == 10)

	if useExt {
		extDevice := node.ExtTempDeviceID()
		if extDevice == "" {
			return nil, ""
		}
		value, err := s.telemetry.Latest(ctx, extDevice, key)
		if err != nil {
			s.logger.Warn("telemetry lookup failed",
				zap.String("device_id", extDevice), zap.String("key", key), zap.Error(err))
			return nil, ""
		}
		if value == nil {
			return nil, ""
		}
		f, ok := value.Float64()
		if !ok {
			return nil, ""
		}
		return &f, sourceExtTempDevice
	}

	var readings []float64
	for _, device := range node.RelatedDevices {
		value, err := s.telemetry.Latest(ctx, device.ID, key)
		if err != nil {
			s.logger.Warn("telemetry lookup failed",
				zap.String("device_id", device.ID), zap.String("key", key), zap.Error(err))
			continue
		}
		if value == nil {
			continue
		}
		if f, ok := value.Float64(); ok {
			readings = append(readings, f)
		}
	}
	if len(readings) == 0 {
		return nil, ""
	}

	var sum float64
	for _, r := range readings {
		sum += r
	}
	avg := math.Round(sum/float64(len(readings))*10) / 10
	return &avg, sourceAverage
}
