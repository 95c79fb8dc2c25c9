package vsphere

import (
	"reflect"
	"testing"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/glasshouse/vcexport/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }
func int32Ptr(v int32) *int32 { return &v }
func boolPtr(v bool) *bool    { return &v }

func testVM() mo.VirtualMachine {
	hostRef := types.ManagedObjectReference{Type: "HostSystem", Value: "host-10"}
	vm := mo.VirtualMachine{
		ManagedEntity: mo.ManagedEntity{
			ExtensibleManagedObject: mo.ExtensibleManagedObject{
				Self: types.ManagedObjectReference{Type: "VirtualMachine", Value: "vm-101"},
			},
			Name: "web-01",
		},
	}
	vm.Runtime = types.VirtualMachineRuntimeInfo{
		PowerState: types.VirtualMachinePowerStatePoweredOn,
		Host:       &hostRef,
	}
	vm.Network = []types.ManagedObjectReference{
		{Type: "Network", Value: "network-1"},
		{Type: "Network", Value: "network-2"},
	}
	vm.Guest = &types.GuestInfo{
		GuestState:    "running",
		HostName:      "web-01",
		IpAddress:     "10.1.2.3",
		GuestFullName: "Ubuntu Linux (64-bit)",
		ToolsStatus:   types.VirtualMachineToolsStatusToolsOk,
		IpStack: []types.GuestStackInfo{
			{DnsConfig: &types.NetDnsConfigInfo{DomainName: "corp.local"}},
		},
		Net: []types.GuestNicInfo{
			{
				Network:        "VM Network",
				MacAddress:     "00:50:56:aa:bb:cc",
				IpAddress:      []string{"10.1.2.3", "fe80::1"},
				DeviceConfigId: 4000,
			},
		},
		Disk: []types.GuestDiskInfo{
			{DiskPath: "/", Capacity: 42949672960, FreeSpace: 10737418240},
		},
	}
	vm.Config = &types.VirtualMachineConfigInfo{
		Uuid:          "uuid-web-01",
		GuestFullName: "Ubuntu Linux (64-bit)",
		Hardware: types.VirtualHardware{
			NumCPU:            4,
			NumCoresPerSocket: 2,
			MemoryMB:          8192,
			Device: []types.BaseVirtualDevice{
				&types.VirtualDisk{
					VirtualDevice: types.VirtualDevice{
						Key:        2000,
						UnitNumber: int32Ptr(0),
						Backing: &types.VirtualDiskFlatVer2BackingInfo{
							VirtualDeviceFileBackingInfo: types.VirtualDeviceFileBackingInfo{
								FileName: "[datastore1] web-01/web-01.vmdk",
							},
						},
					},
					CapacityInKB: 41943040,
				},
				&types.VirtualVmxnet3{
					VirtualVmxnet: types.VirtualVmxnet{
						VirtualEthernetCard: types.VirtualEthernetCard{
							VirtualDevice: types.VirtualDevice{
								Key: 4000,
								Backing: &types.VirtualEthernetCardNetworkBackingInfo{
									VirtualDeviceDeviceBackingInfo: types.VirtualDeviceDeviceBackingInfo{
										DeviceName: "VM Network",
									},
								},
							},
						},
					},
				},
			},
		},
		CpuAllocation:    &types.ResourceAllocationInfo{Reservation: int64Ptr(1000)},
		MemoryAllocation: &types.ResourceAllocationInfo{Reservation: int64Ptr(2048)},
	}
	return vm
}

func TestFlattenVM(t *testing.T) {
	t.Parallel()

	hostNames := map[types.ManagedObjectReference]string{
		{Type: "HostSystem", Value: "host-10"}: "esx-01",
	}
	rec := FlattenVM(testVM(), hostNames)

	want := model.VMSummary{
		Name:             "web-01",
		PowerState:       "poweredOn",
		GuestState:       "running",
		DNSName:          "web-01.corp.local",
		CPUs:             4,
		MemoryMB:         8192,
		TotalDiskMiB:     40960,
		NICs:             2,
		Disks:            1,
		Host:             "esx-01",
		ConfigGuestOS:    "Ubuntu Linux (64-bit)",
		ToolsGuestOS:     "Ubuntu Linux (64-bit)",
		PrimaryIPAddress: "10.1.2.3",
		ID:               "vm-101",
		UUID:             "uuid-web-01",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("FlattenVM = %+v, want %+v", rec, want)
	}
}

func TestFlattenVMBareObject(t *testing.T) {
	t.Parallel()

	var vm mo.VirtualMachine
	vm.Name = "husk"
	rec := FlattenVM(vm, nil)
	if rec.Name != "husk" || rec.UUID != "" || rec.PrimaryIPAddress != "" {
		t.Errorf("bare VM should flatten to zero values, got %+v", rec)
	}
}

func TestGuestDNSName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		vmName   string
		guest    types.GuestInfo
		expected string
	}{
		{
			"ip stack domain wins",
			"web-01",
			types.GuestInfo{
				HostName: "web-01",
				IpStack:  []types.GuestStackInfo{{DnsConfig: &types.NetDnsConfigInfo{DomainName: "corp.local"}}},
			},
			"web-01.corp.local",
		},
		{
			"hostname already qualified",
			"web-01",
			types.GuestInfo{HostName: "web-01.internal.example"},
			"web-01.internal.example",
		},
		{
			"bare hostname falls back to vm name",
			"web-01",
			types.GuestInfo{HostName: "web01host"},
			"web-01.local",
		},
		{
			"no hostname",
			"web-01",
			types.GuestInfo{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guestDNSName(tt.vmName, &tt.guest); got != tt.expected {
				t.Errorf("guestDNSName = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFlattenVMNetworks(t *testing.T) {
	t.Parallel()

	rows := FlattenVMNetworks(testVM(), nil)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	want := model.VMNetwork{
		VM:          "web-01",
		Network:     "VM Network",
		IPv4Address: "10.1.2.3",
		IPv6Address: "fe80::1",
		Switch:      "VM Network",
		MacAddress:  "00:50:56:aa:bb:cc",
	}
	if !reflect.DeepEqual(rows[0], want) {
		t.Errorf("network row = %+v, want %+v", rows[0], want)
	}
}

func TestFlattenVMNetworksDistributedBacking(t *testing.T) {
	t.Parallel()

	vm := testVM()
	eth := vm.Config.Hardware.Device[1].(types.BaseVirtualEthernetCard).GetVirtualEthernetCard()
	eth.Backing = &types.VirtualEthernetCardDistributedVirtualPortBackingInfo{
		Port: types.DistributedVirtualSwitchPortConnection{SwitchUuid: "dvs-uuid-1"},
	}

	rows := FlattenVMNetworks(vm, map[string]string{"dvs-uuid-1": "dvSwitch-Prod"})
	if rows[0].Switch != "dvSwitch-Prod" {
		t.Errorf("distributed backing switch = %q, want dvSwitch-Prod", rows[0].Switch)
	}
}

func TestFlattenVMNetworksNoNICs(t *testing.T) {
	t.Parallel()

	var vm mo.VirtualMachine
	vm.Name = "nic-less"
	rows := FlattenVMNetworks(vm, nil)
	if len(rows) != 1 || rows[0].VM != "nic-less" || rows[0].Network != "" {
		t.Errorf("NIC-less VM should yield one name-only row, got %+v", rows)
	}
}

func TestFlattenVMCPUAndMemory(t *testing.T) {
	t.Parallel()

	vm := testVM()
	cpu := FlattenVMCPU(vm)
	if cpu.CPUs != 4 || cpu.Sockets != 2 || cpu.Reservation != 1000 {
		t.Errorf("cpu row = %+v", cpu)
	}
	mem := FlattenVMMemory(vm)
	if mem.SizeMiB != 8192 || mem.Reservation != 2048 {
		t.Errorf("memory row = %+v", mem)
	}
}

func TestFlattenVMDisksAndPartitions(t *testing.T) {
	t.Parallel()

	vm := testVM()
	disks := FlattenVMDisks(vm)
	if len(disks) != 1 {
		t.Fatalf("got %d disk rows, want 1", len(disks))
	}
	if disks[0].Disk != "1" || disks[0].DiskKey != 2000 || disks[0].CapacityMiB != 40960 {
		t.Errorf("disk row = %+v", disks[0])
	}
	if disks[0].DiskPath != "[datastore1] web-01/web-01.vmdk" {
		t.Errorf("disk path = %q", disks[0].DiskPath)
	}

	parts := FlattenVMPartitions(vm)
	if len(parts) != 1 {
		t.Fatalf("got %d partition rows, want 1", len(parts))
	}
	if parts[0].Disk != "0" || parts[0].FreeMiB != "10240" {
		t.Errorf("partition row = %+v", parts[0])
	}
}

func TestFlattenVMDisklessVM(t *testing.T) {
	t.Parallel()

	var vm mo.VirtualMachine
	vm.Name = "diskless"
	disks := FlattenVMDisks(vm)
	if len(disks) != 1 || disks[0].VM != "diskless" || disks[0].Disk != "" {
		t.Errorf("diskless VM should yield one name-only row, got %+v", disks)
	}
}

func TestFlattenHost(t *testing.T) {
	t.Parallel()

	var h mo.HostSystem
	h.Self = types.ManagedObjectReference{Type: "HostSystem", Value: "host-10"}
	h.Name = "esx-01"
	h.Summary = types.HostListSummary{
		Hardware: &types.HostHardwareSummary{
			Vendor:      "Dell Inc.",
			Model:       "PowerEdge R650",
			Uuid:        "host-uuid-1",
			MemorySize:  274877906944,
			NumCpuPkgs:  2,
			NumCpuCores: 32,
			NumNics:     4,
		},
	}

	rec := FlattenHost(h, "sdk-uuid-1")
	want := model.HostSummary{
		Name:     "esx-01",
		CPUPkgs:  2,
		CPUCores: 32,
		MemoryMB: 262144,
		NICs:     4,
		Vendor:   "Dell Inc.",
		Model:    "PowerEdge R650",
		ObjectID: "host-10",
		UUID:     "host-uuid-1",
		SDKUUID:  "sdk-uuid-1",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("FlattenHost = %+v, want %+v", rec, want)
	}
}

func testHostNetwork() mo.HostSystem {
	var h mo.HostSystem
	h.Self = types.ManagedObjectReference{Type: "HostSystem", Value: "host-10"}
	h.Name = "esx-01"
	h.Config = &types.HostConfigInfo{
		Network: &types.HostNetworkInfo{
			Pnic: []types.PhysicalNic{
				{Key: "key-vim.host.PhysicalNic-vmnic0", Device: "vmnic0", Mac: "aa:bb:cc:00:00:01"},
				{Key: "key-vim.host.PhysicalNic-vmnic1", Device: "vmnic1", Mac: "aa:bb:cc:00:00:02"},
			},
			Vswitch: []types.HostVirtualSwitch{
				{
					Name:              "vSwitch0",
					NumPorts:          128,
					NumPortsAvailable: 120,
					Mtu:               1500,
					Pnic:              []string{"key-vim.host.PhysicalNic-vmnic0"},
					Spec: types.HostVirtualSwitchSpec{
						Policy: &types.HostNetworkPolicy{
							Security: &types.HostNetworkSecurityPolicy{
								AllowPromiscuous: boolPtr(false),
								MacChanges:       boolPtr(true),
								ForgedTransmits:  boolPtr(true),
							},
						},
					},
				},
			},
			Portgroup: []types.HostPortGroup{
				{Spec: types.HostPortGroupSpec{Name: "Management Network", VlanId: 10, VswitchName: "vSwitch0"}},
			},
			Vnic: []types.HostVirtualNic{
				{
					Device: "vmk0",
					Spec: types.HostVirtualNicSpec{
						Mac: "aa:bb:cc:00:00:10",
						Ip: &types.HostIpConfig{
							IpAddress:  "10.0.0.5",
							SubnetMask: "255.255.255.0",
						},
					},
				},
			},
		},
	}
	return h
}

func TestFlattenHostNICs(t *testing.T) {
	t.Parallel()

	rows := FlattenHostNICs(testHostNetwork())
	if len(rows) != 2 {
		t.Fatalf("got %d NIC rows, want 2", len(rows))
	}
	if rows[0].Switch != "vSwitch0" {
		t.Errorf("vmnic0 should map to vSwitch0, got %q", rows[0].Switch)
	}
	if rows[1].Switch != "" {
		t.Errorf("unattached vmnic1 should have empty switch, got %q", rows[1].Switch)
	}
}

func TestFlattenHostVMKs(t *testing.T) {
	t.Parallel()

	rows := FlattenHostVMKs(testHostNetwork())
	if len(rows) != 1 {
		t.Fatalf("got %d vmk rows, want 1", len(rows))
	}
	if rows[0].IPAddress != "10.0.0.5" || rows[0].SubnetMask != "255.255.255.0" {
		t.Errorf("vmk row = %+v", rows[0])
	}
}

func TestFlattenVSwitchesAndPortGroups(t *testing.T) {
	t.Parallel()

	h := testHostNetwork()
	clusterRef := types.ManagedObjectReference{Type: "ClusterComputeResource", Value: "domain-c7"}
	dcRef := types.ManagedObjectReference{Type: "Datacenter", Value: "datacenter-2"}
	rootRef := types.ManagedObjectReference{Type: "Folder", Value: "group-d1"}
	topo := Topology{
		h.Self:     {name: "esx-01", parent: &clusterRef},
		clusterRef: {name: "Cluster-A", parent: &dcRef},
		dcRef:      {name: "DC-East", parent: &rootRef},
		rootRef:    {name: "Datacenters", parent: nil},
	}
	src := model.SourceInfo{FullName: "VMware vCenter Server 8.0.2", SDKUUID: "sdk-uuid-1"}

	switches := FlattenVSwitches(h, topo, src)
	if len(switches) != 1 {
		t.Fatalf("got %d vswitch rows, want 1", len(switches))
	}
	vs := switches[0]
	if vs.Datacenter != "DC-East" || vs.Cluster != "Cluster-A" {
		t.Errorf("ancestry = %q/%q", vs.Datacenter, vs.Cluster)
	}
	if vs.Promiscuous != "false" || vs.MacChanges != "true" {
		t.Errorf("security policy = %+v", vs)
	}
	if vs.Ports != 128 || vs.FreePorts != 120 || vs.MTU != 1500 {
		t.Errorf("port counts = %+v", vs)
	}

	groups := FlattenPortGroups(h)
	if len(groups) != 1 {
		t.Fatalf("got %d port groups, want 1", len(groups))
	}
	want := model.PortGroup{PortGroup: "Management Network", Switch: "vSwitch0", VLAN: 10}
	if !reflect.DeepEqual(groups[0], want) {
		t.Errorf("port group = %+v, want %+v", groups[0], want)
	}
}

func TestFlattenDVPortGroupVLAN(t *testing.T) {
	t.Parallel()

	dvsRef := types.ManagedObjectReference{Type: "DistributedVirtualSwitch", Value: "dvs-20"}
	names := map[types.ManagedObjectReference]string{dvsRef: "dvSwitch-Prod"}

	var pg mo.DistributedVirtualPortgroup
	pg.Name = "dvpg-app"
	pg.Config = types.DVPortgroupConfigInfo{
		Name:                     "dvpg-app",
		DistributedVirtualSwitch: &dvsRef,
		DefaultPortConfig: &types.VMwareDVSPortSetting{
			Vlan: &types.VmwareDistributedVirtualSwitchVlanIdSpec{VlanId: 42},
		},
	}

	rec := FlattenDVPortGroup(pg, names)
	if rec.Port != "dvpg-app" || rec.Switch != "dvSwitch-Prod" || rec.VLAN != "42" {
		t.Errorf("dvport row = %+v", rec)
	}

	// Trunk range formatting.
	pg.Config.DefaultPortConfig = &types.VMwareDVSPortSetting{
		Vlan: &types.VmwareDistributedVirtualSwitchTrunkVlanSpec{
			VlanId: []types.NumericRange{{Start: 100, End: 110}, {Start: 200, End: 200}},
		},
	}
	rec = FlattenDVPortGroup(pg, names)
	if rec.VLAN != "100-110,200" {
		t.Errorf("trunk VLAN = %q, want 100-110,200", rec.VLAN)
	}
}
