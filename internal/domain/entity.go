package domain

// EntityID is the composite identifier ThingsBoard attaches to every
// entity (asset, device, customer).
type EntityID struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
}

// AssetInfo is one asset row from GET /api/customer/{id}/assets.
type AssetInfo struct {
	ID    EntityID `json:"id"`
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Label string   `json:"label"`
}

// AssetPage is the paged envelope around the asset list.
type AssetPage struct {
	Data          []AssetInfo `json:"data"`
	TotalElements int         `json:"totalElements"`
	HasNext       bool        `json:"hasNext"`
}

// DeviceInfo is the device detail from GET /api/device/{id}.
type DeviceInfo struct {
	ID    EntityID `json:"id"`
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Label string   `json:"label"`
}

// EntityRef is one endpoint of a relation edge.
type EntityRef struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
}

// Relation is a directed, typed edge from GET /api/relations/info.
type Relation struct {
	From      EntityRef `json:"from"`
	To        EntityRef `json:"to"`
	Type      string    `json:"type"`
	TypeGroup string    `json:"typeGroup"`
}

// AttributeEntry is one key/value pair from the telemetry attributes API.
type AttributeEntry struct {
	Key          string `json:"key"`
	Value        Value  `json:"value"`
	LastUpdateTs int64  `json:"lastUpdateTs"`
}

const (
	EntityTypeAsset  = "ASSET"
	EntityTypeDevice = "DEVICE"

	// RelationContains is the containment edge type the tree is built from.
	RelationContains = "Contains"
)
