package vsphere

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/glasshouse/vcexport/internal/model"
)

// Collector retrieves inventory objects through container views rooted at
// the service root folder.
type Collector struct {
	c *vim25.Client
}

// NewCollector creates a collector over an established vim25 client.
func NewCollector(c *vim25.Client) *Collector {
	return &Collector{c: c}
}

// Source describes the vCenter endpoint itself.
func (col *Collector) Source() model.SourceInfo {
	about := col.c.ServiceContent.About
	return model.SourceInfo{
		Name:       about.Name,
		APIVersion: about.ApiVersion,
		Vendor:     about.Vendor,
		FullName:   about.FullName,
		ServerType: about.Name,
		SDKUUID:    about.InstanceUuid,
	}
}

// retrieve pulls the given properties of every object of kind under the
// root folder into dst, destroying the view afterwards.
func (col *Collector) retrieve(ctx context.Context, kind string, props []string, dst interface{}) error {
	m := view.NewManager(col.c)
	v, err := m.CreateContainerView(ctx, col.c.ServiceContent.RootFolder, []string{kind}, true)
	if err != nil {
		return fmt.Errorf("vsphere: create %s view: %w", kind, err)
	}
	defer v.Destroy(ctx)

	if err := v.Retrieve(ctx, []string{kind}, props, dst); err != nil {
		return fmt.Errorf("vsphere: retrieve %s properties: %w", kind, err)
	}
	return nil
}

// VirtualMachines returns every VM in the inventory with the properties the
// flatteners need.
func (col *Collector) VirtualMachines(ctx context.Context) ([]mo.VirtualMachine, error) {
	var vms []mo.VirtualMachine
	err := col.retrieve(ctx, "VirtualMachine",
		[]string{"name", "config", "guest", "runtime", "network", "summary"}, &vms)
	if err != nil {
		return nil, err
	}
	return vms, nil
}

// Hosts returns every ESXi host with its summary and network configuration.
func (col *Collector) Hosts(ctx context.Context) ([]mo.HostSystem, error) {
	var hosts []mo.HostSystem
	err := col.retrieve(ctx, "HostSystem",
		[]string{"name", "parent", "summary", "config.network"}, &hosts)
	if err != nil {
		return nil, err
	}
	return hosts, nil
}

// DistributedSwitches returns every DVS in the inventory.
func (col *Collector) DistributedSwitches(ctx context.Context) ([]mo.DistributedVirtualSwitch, error) {
	var switches []mo.DistributedVirtualSwitch
	err := col.retrieve(ctx, "DistributedVirtualSwitch",
		[]string{"name", "parent", "uuid", "summary", "config"}, &switches)
	if err != nil {
		return nil, err
	}
	return switches, nil
}

// DistributedPortGroups returns every distributed port group.
func (col *Collector) DistributedPortGroups(ctx context.Context) ([]mo.DistributedVirtualPortgroup, error) {
	var groups []mo.DistributedVirtualPortgroup
	err := col.retrieve(ctx, "DistributedVirtualPortgroup",
		[]string{"name", "config"}, &groups)
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Topology returns the name and parent of every managed entity, for
// resolving datacenter and cluster ancestry without per-object round trips.
func (col *Collector) Topology(ctx context.Context) (Topology, error) {
	var entities []mo.ManagedEntity
	if err := col.retrieve(ctx, "ManagedEntity", []string{"name", "parent"}, &entities); err != nil {
		return nil, err
	}

	topo := make(Topology, len(entities))
	for _, e := range entities {
		topo[e.Self] = topoNode{name: e.Name, parent: e.Parent}
	}
	return topo, nil
}

// HostNames maps host morefs to names for VM row resolution.
func HostNames(hosts []mo.HostSystem) map[types.ManagedObjectReference]string {
	names := make(map[types.ManagedObjectReference]string, len(hosts))
	for _, h := range hosts {
		names[h.Self] = h.Name
	}
	return names
}

// DVSNames maps switch UUIDs to names, used to resolve the switch behind a
// distributed virtual port backing.
func DVSNames(switches []mo.DistributedVirtualSwitch) map[string]string {
	names := make(map[string]string, len(switches))
	for _, s := range switches {
		if s.Uuid != "" {
			names[s.Uuid] = s.Name
		}
	}
	return names
}

// DVSRefNames maps switch morefs to names, used by port group rows.
func DVSRefNames(switches []mo.DistributedVirtualSwitch) map[types.ManagedObjectReference]string {
	names := make(map[types.ManagedObjectReference]string, len(switches))
	for _, s := range switches {
		names[s.Self] = s.Name
	}
	return names
}
