package domain

// AttributeKeys are the nine asset attributes carried into the
// structure tree. Everything else returned by the attribute API is
// dropped.
var AttributeKeys = []string{
	"operationalMode",
	"childLock",
	"fixValue",
	"maxTemp",
	"minTemp",
	"extTempDevice",
	"overruleMinutes",
	"runStatus",
	"schedulerPlan",
}

// RelatedDevice is one device attached to a tree node.
type RelatedDevice struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// AssetNode is the mutable assembly form of one asset during a
// synchronization run. It is linked into a forest by the tree builder
// and then serialized into TreeNode.
type AssetNode struct {
	ID       string
	Name     string
	Type     string
	Label    string
	ParentID string // empty for roots
	Children []*AssetNode

	HasDevices     bool
	RelatedDevices []RelatedDevice

	// Attributes holds the successfully fetched subset of AttributeKeys.
	Attributes map[string]Value
}

// TreeNode is the serialized, persisted form of one asset. The nine
// attribute fields are emitted only when they were fetched.
type TreeNode struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Label      string      `json:"label"`
	HasDevices bool        `json:"hasDevices"`
	Children   []*TreeNode `json:"children"`

	RelatedDevices []RelatedDevice `json:"relatedDevices,omitempty"`

	OperationalMode *Value `json:"operationalMode,omitempty"`
	ChildLock       *Value `json:"childLock,omitempty"`
	FixValue        *Value `json:"fixValue,omitempty"`
	MaxTemp         *Value `json:"maxTemp,omitempty"`
	MinTemp         *Value `json:"minTemp,omitempty"`
	ExtTempDevice   *Value `json:"extTempDevice,omitempty"`
	OverruleMinutes *Value `json:"overruleMinutes,omitempty"`
	RunStatus       *Value `json:"runStatus,omitempty"`
	SchedulerPlan   *Value `json:"schedulerPlan,omitempty"`
}

// SetAttribute assigns one of the nine recognized attributes. Unknown
// keys are ignored.
func (n *TreeNode) SetAttribute(key string, v Value) {
	switch key {
	case "operationalMode":
		n.OperationalMode = &v
	case "childLock":
		n.ChildLock = &v
	case "fixValue":
		n.FixValue = &v
	case "maxTemp":
		n.MaxTemp = &v
	case "minTemp":
		n.MinTemp = &v
	case "extTempDevice":
		n.ExtTempDevice = &v
	case "overruleMinutes":
		n.OverruleMinutes = &v
	case "runStatus":
		n.RunStatus = &v
	case "schedulerPlan":
		n.SchedulerPlan = &v
	}
}

// OperationalModeInt returns the node's operational mode as an integer
// (the upstream value is sometimes a number, sometimes a numeric
// string). Missing or non-numeric modes count as 0.
func (n *TreeNode) OperationalModeInt() int {
	if n.OperationalMode == nil {
		return 0
	}
	f, ok := n.OperationalMode.Float64()
	if !ok {
		return 0
	}
	return int(f)
}

// ExtTempDeviceID returns the external temperature device reference,
// if one is set and is a string.
func (n *TreeNode) ExtTempDeviceID() string {
	if n.ExtTempDevice == nil || n.ExtTempDevice.Kind != KindString {
		return ""
	}
	return n.ExtTempDevice.Str
}
