package service

import (
	"fmt"
	"sort"

	"heatmanager-data/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// unknownLabel is the placeholder for devices whose detail lookup
// failed. The dashboard displays it verbatim.
const unknownLabel = "Unbekannt"

// AssetRelations carries the resolved relations of one asset into the
// tree builder.
type AssetRelations struct {
	AssetID         string
	AssetRelations  []domain.Relation
	DeviceRelations []domain.Relation
}

// buildForest assembles the structure forest from the flat fetch
// results. It is pure apart from log output: no I/O, deterministic for
// a given input order. Roots keep the order of the asset list;
// children are sorted by name with German collation.
func buildForest(
	assets []domain.AssetInfo,
	relations []AssetRelations,
	devices map[string]*domain.DeviceInfo,
	attributes map[string]map[string]domain.Value,
	sess *SyncSession,
) []*domain.TreeNode {
	nodes := make(map[string]*domain.AssetNode, len(assets))
	order := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.ID.ID == "" || nodes[a.ID.ID] != nil {
			continue
		}
		nodes[a.ID.ID] = &domain.AssetNode{
			ID:    a.ID.ID,
			Name:  a.Name,
			Type:  a.Type,
			Label: a.Label,
		}
		order = append(order, a.ID.ID)
	}

	for _, rel := range relations {
		node := nodes[rel.AssetID]
		if node == nil {
			continue
		}

		related := make([]domain.RelatedDevice, 0, len(rel.DeviceRelations))
		for _, dr := range rel.DeviceRelations {
			if dr.To.EntityType != domain.EntityTypeDevice || dr.To.ID == "" {
				continue
			}
			rd := domain.RelatedDevice{
				ID:    dr.To.ID,
				Name:  unknownLabel,
				Type:  unknownLabel,
				Label: unknownLabel,
			}
			if d := devices[dr.To.ID]; d != nil {
				rd.Name = d.Name
				rd.Type = d.Type
				rd.Label = d.Label
			}
			related = append(related, rd)
		}
		if len(related) > 0 {
			node.HasDevices = true
			node.RelatedDevices = related
		}

		for _, ar := range rel.AssetRelations {
			if ar.Type != domain.RelationContains || ar.To.EntityType != domain.EntityTypeAsset {
				continue
			}
			if ar.From.ID == "" || ar.To.ID == "" {
				// malformed relation record
				continue
			}
			parent := nodes[ar.From.ID]
			child := nodes[ar.To.ID]
			if parent == nil || child == nil || parent == child {
				continue
			}
			if child.ParentID == parent.ID {
				continue
			}
			if child.ParentID != "" {
				// Conflicting parentage: the last-processed relation wins.
				// Re-home the node so it is serialized exactly once.
				sess.Warn("asset re-parented by later relation", map[string]any{
					"assetId":          child.ID,
					"assetName":        child.Name,
					"previousParentId": child.ParentID,
					"newParentId":      parent.ID,
				})
				if prev := nodes[child.ParentID]; prev != nil {
					removeChild(prev, child.ID)
				}
			}
			child.ParentID = parent.ID
			parent.Children = append(parent.Children, child)
		}
	}

	for id, attrs := range attributes {
		if node := nodes[id]; node != nil && len(attrs) > 0 {
			node.Attributes = attrs
		}
	}

	cl := collate.New(language.German)
	visited := make(map[string]bool, len(nodes))
	forest := make([]*domain.TreeNode, 0, len(order))
	for _, id := range order {
		node := nodes[id]
		if node.ParentID != "" {
			continue
		}
		forest = append(forest, serializeNode(node, cl, visited, sess))
	}
	return forest
}

func removeChild(parent *domain.AssetNode, childID string) {
	for i, c := range parent.Children {
		if c.ID == childID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

// serializeNode emits the persisted node form. The visited set turns a
// containment cycle into a logged invariant violation with a truncated
// branch instead of unbounded recursion.
func serializeNode(n *domain.AssetNode, cl *collate.Collator, visited map[string]bool, sess *SyncSession) *domain.TreeNode {
	visited[n.ID] = true

	out := &domain.TreeNode{
		ID:         n.ID,
		Name:       n.Name,
		Type:       n.Type,
		Label:      n.Label,
		HasDevices: n.HasDevices,
		Children:   make([]*domain.TreeNode, 0, len(n.Children)),
	}

	for _, child := range n.Children {
		if visited[child.ID] {
			sess.Error("containment cycle detected, truncating branch",
				fmt.Errorf("asset %s already serialized", child.ID))
			continue
		}
		out.Children = append(out.Children, serializeNode(child, cl, visited, sess))
	}
	sort.SliceStable(out.Children, func(i, j int) bool {
		return cl.CompareString(out.Children[i].Name, out.Children[j].Name) < 0
	})

	if n.HasDevices && len(n.RelatedDevices) > 0 {
		out.RelatedDevices = n.RelatedDevices
	}

	for _, key := range domain.AttributeKeys {
		if v, ok := n.Attributes[key]; ok {
			out.SetAttribute(key, v)
		}
	}
	return out
}
