package thingsboard

import (
	"context"
	"fmt"

	"heatmanager-data/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const authHeader = "X-Authorization"

// Client is a typed wrapper around the ThingsBoard REST API. The
// bearer token is passed per call: a single client instance serves
// requests for all customers. Timeouts are imposed by the caller
// through context deadlines so that one synchronization run shares one
// cancellation scope; the client itself never retries.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// CustomerAssets fetches all assets of a customer. The page size
// matches the dashboard's assumption that a customer fits one page.
func (c *Client) CustomerAssets(ctx context.Context, token, customerID string) ([]domain.AssetInfo, error) {
	var page domain.AssetPage
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetPathParam("customerId", customerID).
		SetQueryParam("pageSize", "10000").
		SetQueryParam("page", "0").
		SetResult(&page).
		Get("/api/customer/{customerId}/assets")
	if err != nil {
		return nil, fmt.Errorf("fetch customer assets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch customer assets: %s", resp.Status())
	}
	return page.Data, nil
}

// RelationsFrom fetches all relations where the asset is the source,
// regardless of target type or relation type.
func (c *Client) RelationsFrom(ctx context.Context, token, assetID string) ([]domain.Relation, error) {
	var relations []domain.Relation
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetQueryParam("fromId", assetID).
		SetQueryParam("fromType", domain.EntityTypeAsset).
		SetResult(&relations).
		Get("/api/relations/info")
	if err != nil {
		return nil, fmt.Errorf("fetch asset relations: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch asset relations: %s", resp.Status())
	}
	return relations, nil
}

// DeviceRelations fetches the asset's "Contains" relations whose
// target is a device.
func (c *Client) DeviceRelations(ctx context.Context, token, assetID string) ([]domain.Relation, error) {
	var relations []domain.Relation
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetQueryParam("fromId", assetID).
		SetQueryParam("fromType", domain.EntityTypeAsset).
		SetQueryParam("relationType", domain.RelationContains).
		SetQueryParam("toType", domain.EntityTypeDevice).
		SetResult(&relations).
		Get("/api/relations/info")
	if err != nil {
		return nil, fmt.Errorf("fetch device relations: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch device relations: %s", resp.Status())
	}
	return relations, nil
}

// Device fetches the detail record of one device.
func (c *Client) Device(ctx context.Context, token, deviceID string) (*domain.DeviceInfo, error) {
	var device domain.DeviceInfo
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetPathParam("deviceId", deviceID).
		SetResult(&device).
		Get("/api/device/{deviceId}")
	if err != nil {
		return nil, fmt.Errorf("fetch device %s: %w", deviceID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch device %s: %s", deviceID, resp.Status())
	}
	if device.ID.ID == "" {
		return nil, fmt.Errorf("fetch device %s: empty response", deviceID)
	}
	return &device, nil
}

// AssetAttributes fetches the full attribute list of one asset.
func (c *Client) AssetAttributes(ctx context.Context, token, assetID string) ([]domain.AttributeEntry, error) {
	var attributes []domain.AttributeEntry
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(authHeader, "Bearer "+token).
		SetPathParam("assetId", assetID).
		SetResult(&attributes).
		Get("/api/plugins/telemetry/ASSET/{assetId}/values/attributes")
	if err != nil {
		return nil, fmt.Errorf("fetch asset attributes: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch asset attributes: %s", resp.Status())
	}
	return attributes, nil
}
