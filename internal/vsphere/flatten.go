package vsphere

import (
	"strconv"
	"strings"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/glasshouse/vcexport/internal/model"
)

// FlattenVM resolves one VM managed object into the summary record the
// filter operates on. Every optional attribute collapses to a zero value.
func FlattenVM(vm mo.VirtualMachine, hostNames map[types.ManagedObjectReference]string) model.VMSummary {
	rec := model.VMSummary{
		Name:       vm.Name,
		PowerState: string(vm.Runtime.PowerState),
		NICs:       len(vm.Network),
		ID:         vm.Self.Value,
	}

	if vm.Guest != nil {
		rec.GuestState = vm.Guest.GuestState
		rec.PrimaryIPAddress = vm.Guest.IpAddress
		rec.ToolsGuestOS = vm.Guest.GuestFullName
		rec.DNSName = guestDNSName(vm.Name, vm.Guest)
	}
	if vm.Config != nil {
		rec.Template = vm.Config.Template
		rec.UUID = vm.Config.Uuid
		rec.ConfigGuestOS = vm.Config.GuestFullName
		rec.CPUs = vm.Config.Hardware.NumCPU
		rec.MemoryMB = vm.Config.Hardware.MemoryMB
		rec.Disks, rec.TotalDiskMiB = diskTotals(vm.Config.Hardware.Device)
	}
	if vm.Runtime.Host != nil {
		rec.Host = hostNames[*vm.Runtime.Host]
	}
	return rec
}

// guestDNSName builds the FQDN the way guest tools report it: domain from
// the IP stack when present, then a hostname that already carries a domain,
// then the VM name with a .local suffix as last resort.
func guestDNSName(vmName string, guest *types.GuestInfo) string {
	hostName := guest.HostName
	for _, stack := range guest.IpStack {
		if stack.DnsConfig != nil && stack.DnsConfig.DomainName != "" && hostName != "" {
			return hostName + "." + stack.DnsConfig.DomainName
		}
	}
	if hostName == "" {
		return ""
	}
	if strings.Contains(hostName, ".") {
		return hostName
	}
	return vmName + ".local"
}

func diskTotals(devices []types.BaseVirtualDevice) (count int, totalMiB int64) {
	for _, dev := range devices {
		if disk, ok := dev.(*types.VirtualDisk); ok {
			count++
			totalMiB += disk.CapacityInKB / 1024
		}
	}
	return count, totalMiB
}

// FlattenVMNetworks produces one row per guest NIC, resolving the backing
// switch through the VM's device list. VMs without guest NICs yield a
// single name-only row so the table still accounts for them.
func FlattenVMNetworks(vm mo.VirtualMachine, dvsNames map[string]string) []model.VMNetwork {
	if vm.Guest == nil || len(vm.Guest.Net) == 0 {
		return []model.VMNetwork{{VM: vm.Name}}
	}

	rows := make([]model.VMNetwork, 0, len(vm.Guest.Net))
	for _, nic := range vm.Guest.Net {
		row := model.VMNetwork{
			VM:         vm.Name,
			Network:    nic.Network,
			MacAddress: nic.MacAddress,
		}
		for _, ip := range nic.IpAddress {
			if strings.Contains(ip, ":") {
				if row.IPv6Address == "" {
					row.IPv6Address = ip
				}
			} else if row.IPv4Address == "" {
				row.IPv4Address = ip
			}
		}
		row.Switch = switchForDevice(vm, nic.DeviceConfigId, dvsNames)
		rows = append(rows, row)
	}
	return rows
}

// switchForDevice resolves the switch behind the ethernet device with the
// given key: the device name for standard vswitch backings, the DVS name
// looked up by UUID for distributed port backings.
func switchForDevice(vm mo.VirtualMachine, deviceKey int32, dvsNames map[string]string) string {
	if vm.Config == nil {
		return ""
	}
	for _, dev := range vm.Config.Hardware.Device {
		card, ok := dev.(types.BaseVirtualEthernetCard)
		if !ok {
			continue
		}
		eth := card.GetVirtualEthernetCard()
		if eth.Key != deviceKey {
			continue
		}
		switch backing := eth.Backing.(type) {
		case *types.VirtualEthernetCardNetworkBackingInfo:
			return backing.DeviceName
		case *types.VirtualEthernetCardDistributedVirtualPortBackingInfo:
			return dvsNames[backing.Port.SwitchUuid]
		}
		return ""
	}
	return ""
}

// FlattenVMCPU returns the CPU row for one VM.
func FlattenVMCPU(vm mo.VirtualMachine) model.VMCPU {
	row := model.VMCPU{VM: vm.Name}
	if vm.Config == nil {
		return row
	}
	row.CPUs = vm.Config.Hardware.NumCPU
	if cores := vm.Config.Hardware.NumCoresPerSocket; cores > 0 {
		row.Sockets = row.CPUs / cores
	}
	if vm.Config.CpuAllocation != nil && vm.Config.CpuAllocation.Reservation != nil {
		row.Reservation = *vm.Config.CpuAllocation.Reservation
	}
	return row
}

// FlattenVMMemory returns the memory row for one VM.
func FlattenVMMemory(vm mo.VirtualMachine) model.VMMemory {
	row := model.VMMemory{VM: vm.Name}
	if vm.Config == nil {
		return row
	}
	row.SizeMiB = vm.Config.Hardware.MemoryMB
	if vm.Config.MemoryAllocation != nil && vm.Config.MemoryAllocation.Reservation != nil {
		row.Reservation = *vm.Config.MemoryAllocation.Reservation
	}
	return row
}

// FlattenVMDisks returns one row per virtual disk, or a single name-only
// row for diskless VMs.
func FlattenVMDisks(vm mo.VirtualMachine) []model.VMDisk {
	var rows []model.VMDisk
	if vm.Config != nil {
		diskNumber := 0
		for _, dev := range vm.Config.Hardware.Device {
			disk, ok := dev.(*types.VirtualDisk)
			if !ok {
				continue
			}
			diskNumber++
			row := model.VMDisk{
				VM:          vm.Name,
				Disk:        strconv.Itoa(diskNumber),
				DiskKey:     disk.Key,
				CapacityMiB: disk.CapacityInKB / 1024,
			}
			if backing, ok := disk.Backing.(types.BaseVirtualDeviceFileBackingInfo); ok {
				row.DiskPath = backing.GetVirtualDeviceFileBackingInfo().FileName
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, model.VMDisk{VM: vm.Name})
	}
	return rows
}

// FlattenVMPartitions joins virtual disks with guest-reported free space.
// Free space stays empty when the guest reports no matching mount.
func FlattenVMPartitions(vm mo.VirtualMachine) []model.VMPartition {
	var rows []model.VMPartition
	if vm.Config != nil {
		for _, dev := range vm.Config.Hardware.Device {
			disk, ok := dev.(*types.VirtualDisk)
			if !ok {
				continue
			}
			row := model.VMPartition{
				VM:          vm.Name,
				DiskKey:     disk.Key,
				CapacityMiB: disk.CapacityInKB / 1024,
			}
			if disk.UnitNumber != nil {
				row.Disk = strconv.FormatInt(int64(*disk.UnitNumber), 10)
			}
			if backing, ok := disk.Backing.(types.BaseVirtualDeviceFileBackingInfo); ok {
				fileName := backing.GetVirtualDeviceFileBackingInfo().FileName
				row.FreeMiB = guestFreeMiB(vm.Guest, fileName)
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, model.VMPartition{VM: vm.Name})
	}
	return rows
}

func guestFreeMiB(guest *types.GuestInfo, fileName string) string {
	if guest == nil || fileName == "" {
		return ""
	}
	for _, disk := range guest.Disk {
		if disk.DiskPath != "" && strings.Contains(fileName, disk.DiskPath) {
			return strconv.FormatInt(disk.FreeSpace/(1024*1024), 10)
		}
	}
	return ""
}

// FlattenVMTools returns the tools-status row for one VM.
func FlattenVMTools(vm mo.VirtualMachine) model.VMTools {
	row := model.VMTools{VM: vm.Name}
	if vm.Guest != nil {
		row.Tools = string(vm.Guest.ToolsStatus)
	}
	return row
}

// FlattenHost resolves one host into its summary row.
func FlattenHost(h mo.HostSystem, sdkUUID string) model.HostSummary {
	rec := model.HostSummary{
		Name:     h.Name,
		ObjectID: h.Self.Value,
		SDKUUID:  sdkUUID,
	}
	if hw := h.Summary.Hardware; hw != nil {
		rec.CPUPkgs = hw.NumCpuPkgs
		rec.CPUCores = hw.NumCpuCores
		rec.MemoryMB = hw.MemorySize / (1024 * 1024)
		rec.NICs = hw.NumNics
		rec.Vendor = hw.Vendor
		rec.Model = hw.Model
		rec.UUID = hw.Uuid
	}
	return rec
}

// FlattenHostNICs returns one row per physical NIC, with the standard
// vswitch each NIC is an uplink of.
func FlattenHostNICs(h mo.HostSystem) []model.HostNIC {
	net := hostNetwork(h)
	if net == nil {
		return nil
	}

	// pnic key -> owning vswitch name
	uplinks := make(map[string]string)
	for _, vs := range net.Vswitch {
		for _, key := range vs.Pnic {
			uplinks[key] = vs.Name
		}
	}

	rows := make([]model.HostNIC, 0, len(net.Pnic))
	for _, pnic := range net.Pnic {
		rows = append(rows, model.HostNIC{
			Host:   h.Name,
			Device: pnic.Device,
			MAC:    pnic.Mac,
			Switch: uplinks[pnic.Key],
		})
	}
	return rows
}

// FlattenHostVMKs returns one row per VMkernel adapter.
func FlattenHostVMKs(h mo.HostSystem) []model.HostVMK {
	net := hostNetwork(h)
	if net == nil {
		return nil
	}

	rows := make([]model.HostVMK, 0, len(net.Vnic))
	for _, vnic := range net.Vnic {
		row := model.HostVMK{
			Host:       h.Name,
			MacAddress: vnic.Spec.Mac,
		}
		if ip := vnic.Spec.Ip; ip != nil {
			row.IPAddress = ip.IpAddress
			row.SubnetMask = ip.SubnetMask
			if ip.IpV6Config != nil && len(ip.IpV6Config.IpV6Address) > 0 {
				row.IP6Address = ip.IpV6Config.IpV6Address[0].IpAddress
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FlattenVSwitches returns one row per standard virtual switch on a host.
func FlattenVSwitches(h mo.HostSystem, topo Topology, src model.SourceInfo) []model.VSwitch {
	net := hostNetwork(h)
	if net == nil {
		return nil
	}

	rows := make([]model.VSwitch, 0, len(net.Vswitch))
	for _, vs := range net.Vswitch {
		row := model.VSwitch{
			Host:       h.Name,
			Datacenter: topo.DatacenterOf(h.Self),
			Cluster:    topo.ClusterOf(h.Self),
			Switch:     vs.Name,
			Ports:      vs.NumPorts,
			FreePorts:  vs.NumPortsAvailable,
			MTU:        vs.Mtu,
			SDKServer:  src.FullName,
			SDKUUID:    src.SDKUUID,
		}
		if policy := vs.Spec.Policy; policy != nil && policy.Security != nil {
			row.Promiscuous = boolString(policy.Security.AllowPromiscuous)
			row.MacChanges = boolString(policy.Security.MacChanges)
			row.ForgedTransmits = boolString(policy.Security.ForgedTransmits)
		}
		rows = append(rows, row)
	}
	return rows
}

// FlattenPortGroups returns one row per standard port group on a host.
func FlattenPortGroups(h mo.HostSystem) []model.PortGroup {
	net := hostNetwork(h)
	if net == nil {
		return nil
	}

	rows := make([]model.PortGroup, 0, len(net.Portgroup))
	for _, pg := range net.Portgroup {
		rows = append(rows, model.PortGroup{
			PortGroup: pg.Spec.Name,
			Switch:    pg.Spec.VswitchName,
			VLAN:      pg.Spec.VlanId,
		})
	}
	return rows
}

func hostNetwork(h mo.HostSystem) *types.HostNetworkInfo {
	if h.Config == nil {
		return nil
	}
	return h.Config.Network
}

// FlattenDVS resolves a distributed virtual switch into its summary row.
func FlattenDVS(s mo.DistributedVirtualSwitch, topo Topology, src model.SourceInfo) model.DVSwitch {
	rec := model.DVSwitch{
		Switch:     s.Name,
		Datacenter: topo.DatacenterOf(s.Self),
		Name:       s.Name,
		SDKServer:  src.FullName,
		SDKUUID:    src.SDKUUID,
	}
	rec.HostMembers = len(s.Summary.HostMember)
	rec.VMs = len(s.Summary.Vm)
	rec.Ports = s.Summary.NumPorts
	if pi := s.Summary.ProductInfo; pi != nil {
		rec.Vendor = pi.Vendor
		rec.Version = pi.Version
	}
	if s.Config != nil {
		cfg := s.Config.GetDVSConfigInfo()
		rec.Description = cfg.Description
		rec.MaxPorts = cfg.MaxPorts
		if cfg.CreateTime.IsZero() {
			rec.Created = ""
		} else {
			rec.Created = cfg.CreateTime.UTC().Format("2006-01-02 15:04:05")
		}
	}
	return rec
}

// FlattenDVPortGroup resolves a distributed port group row, including the
// VLAN id or trunk range from its default port config.
func FlattenDVPortGroup(pg mo.DistributedVirtualPortgroup, switchNames map[types.ManagedObjectReference]string) model.DVPortGroup {
	rec := model.DVPortGroup{Port: pg.Name}
	if pg.Config.Name != "" {
		rec.Port = pg.Config.Name
	}
	if pg.Config.DistributedVirtualSwitch != nil {
		rec.Switch = switchNames[*pg.Config.DistributedVirtualSwitch]
	}
	rec.VLAN = dvPortVLAN(pg.Config.DefaultPortConfig)
	return rec
}

func dvPortVLAN(portConfig types.BaseDVPortSetting) string {
	setting, ok := portConfig.(*types.VMwareDVSPortSetting)
	if !ok || setting == nil {
		return ""
	}
	switch vlan := setting.Vlan.(type) {
	case *types.VmwareDistributedVirtualSwitchVlanIdSpec:
		return strconv.FormatInt(int64(vlan.VlanId), 10)
	case *types.VmwareDistributedVirtualSwitchTrunkVlanSpec:
		ranges := make([]string, 0, len(vlan.VlanId))
		for _, r := range vlan.VlanId {
			if r.Start == r.End {
				ranges = append(ranges, strconv.FormatInt(int64(r.Start), 10))
			} else {
				ranges = append(ranges, strconv.FormatInt(int64(r.Start), 10)+"-"+strconv.FormatInt(int64(r.End), 10))
			}
		}
		return strings.Join(ranges, ",")
	default:
		return ""
	}
}

func boolString(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
