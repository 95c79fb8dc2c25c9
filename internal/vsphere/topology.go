package vsphere

import "github.com/vmware/govmomi/vim25/types"

type topoNode struct {
	name   string
	parent *types.ManagedObjectReference
}

// Topology is the name/parent index over the whole inventory tree.
type Topology map[types.ManagedObjectReference]topoNode

// ancestorOf walks the parent chain of ref and returns the name of the
// first ancestor with the given managed-object type, or "".
func (t Topology) ancestorOf(ref types.ManagedObjectReference, kind string) string {
	node, ok := t[ref]
	for ok {
		if ref.Type == kind {
			return node.name
		}
		if node.parent == nil {
			return ""
		}
		ref = *node.parent
		node, ok = t[ref]
	}
	return ""
}

// DatacenterOf returns the datacenter an entity lives in, or "".
func (t Topology) DatacenterOf(ref types.ManagedObjectReference) string {
	return t.ancestorOf(ref, "Datacenter")
}

// ClusterOf returns the cluster an entity belongs to, or "". Standalone
// hosts have no cluster ancestor.
func (t Topology) ClusterOf(ref types.ManagedObjectReference) string {
	return t.ancestorOf(ref, "ClusterComputeResource")
}
