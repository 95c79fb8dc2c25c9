package export

import (
	"strconv"

	"github.com/glasshouse/vcexport/internal/model"
)

// Column sets mirror the RVTools tab layout the original consumers of these
// archives parse. Order matters; do not reorder without versioning the
// downstream import jobs.
var (
	infoHeader = []string{
		"VM", "Powerstate", "Template", "DNS Name", "CPUs", "Memory",
		"Total disk capacity MiB", "NICs", "Disks", "Host",
		"OS according to the configuration file", "OS according to the VMware Tools",
		"VI SDK API Version", "Primary IP Address", "VM ID", "VM UUID",
		"VI SDK Server type", "VI SDK Server", "VI SDK UUID",
	}
	networkHeader   = []string{"VM", "Network", "IPv4 Address", "IPv6 Address", "Switch", "Mac Address"}
	cpuHeader       = []string{"VM", "CPUs", "Sockets", "Reservation"}
	memoryHeader    = []string{"VM", "Size MiB", "Reservation"}
	diskHeader      = []string{"VM", "Disk", "Disk Key", "Disk Path", "Capacity MiB"}
	partitionHeader = []string{"VM", "Disk Key", "Disk", "Capacity MiB", "Free MiB"}
	sourceHeader    = []string{"Name", "API version", "Vendor", "VI SDK UUID"}
	toolsHeader     = []string{"VM", "Tools"}
	hostHeader      = []string{
		"Host", "# CPU", "# Cores", "# Memory", "# NICs", "Vendor", "Model",
		"Object ID", "UUID", "VI SDK UUID",
	}
	hostNICHeader = []string{"Host", "Network Device", "MAC", "Switch"}
	hostVMKHeader = []string{"Host", "Mac Address", "IP Address", "IP 6 Address", "Subnet mask"}
	vswitchHeader = []string{
		"Host", "Datacenter", "Cluster", "Switch", "# Ports", "Free Ports",
		"Promiscuous Mode", "Mac Changes", "Forged Transmits", "MTU",
		"VI SDK Server", "VI SDK UUID",
	}
	dvswitchHeader = []string{
		"Switch", "Datacenter", "Name", "Vendor", "Version", "Description",
		"Created", "Host members", "Max Ports", "# Ports", "# VMs",
		"VI SDK Server", "VI SDK UUID",
	}
	portHeader   = []string{"Port Group", "Switch", "VLAN"}
	dvportHeader = []string{"Port", "Switch", "VLAN"}
	perfHeader   = []string{
		"VM Name", "VM UUID", "maxCpuUsagePctDec", "avgCpuUsagePctDec",
		"maxRamUsagePctDec", "avgRamUtlPctDec", "Storage-Max Read IOPS Size",
		"Storage-Max Write IOPS Size", "Timestamp",
	}
)

func infoRows(inv *model.Inventory) [][]string {
	src := inv.Source
	rows := make([][]string, 0, len(inv.VMs))
	for _, vm := range inv.VMs {
		rows = append(rows, []string{
			vm.Name,
			vm.PowerState,
			strconv.FormatBool(vm.Template),
			vm.DNSName,
			itoa32(vm.CPUs),
			itoa32(vm.MemoryMB),
			strconv.FormatInt(vm.TotalDiskMiB, 10),
			strconv.Itoa(vm.NICs),
			strconv.Itoa(vm.Disks),
			vm.Host,
			vm.ConfigGuestOS,
			vm.ToolsGuestOS,
			src.APIVersion,
			vm.PrimaryIPAddress,
			vm.ID,
			vm.UUID,
			src.ServerType,
			src.FullName,
			src.SDKUUID,
		})
	}
	return rows
}

func networkRows(nets []model.VMNetwork) [][]string {
	rows := make([][]string, 0, len(nets))
	for _, n := range nets {
		rows = append(rows, []string{n.VM, n.Network, n.IPv4Address, n.IPv6Address, n.Switch, n.MacAddress})
	}
	return rows
}

func cpuRows(cpus []model.VMCPU) [][]string {
	rows := make([][]string, 0, len(cpus))
	for _, c := range cpus {
		rows = append(rows, []string{c.VM, itoa32(c.CPUs), itoa32(c.Sockets), strconv.FormatInt(c.Reservation, 10)})
	}
	return rows
}

func memoryRows(mems []model.VMMemory) [][]string {
	rows := make([][]string, 0, len(mems))
	for _, m := range mems {
		rows = append(rows, []string{m.VM, itoa32(m.SizeMiB), strconv.FormatInt(m.Reservation, 10)})
	}
	return rows
}

func diskRows(disks []model.VMDisk) [][]string {
	rows := make([][]string, 0, len(disks))
	for _, d := range disks {
		rows = append(rows, []string{d.VM, d.Disk, itoa32(d.DiskKey), d.DiskPath, strconv.FormatInt(d.CapacityMiB, 10)})
	}
	return rows
}

func partitionRows(parts []model.VMPartition) [][]string {
	rows := make([][]string, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, []string{p.VM, itoa32(p.DiskKey), p.Disk, strconv.FormatInt(p.CapacityMiB, 10), p.FreeMiB})
	}
	return rows
}

func sourceRows(src model.SourceInfo) [][]string {
	return [][]string{{src.Name, src.APIVersion, src.Vendor, src.SDKUUID}}
}

func toolsRows(tools []model.VMTools) [][]string {
	rows := make([][]string, 0, len(tools))
	for _, t := range tools {
		rows = append(rows, []string{t.VM, t.Tools})
	}
	return rows
}

func hostRows(hosts []model.HostSummary, sdkUUID string) [][]string {
	rows := make([][]string, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, []string{
			h.Name,
			strconv.FormatInt(int64(h.CPUPkgs), 10),
			strconv.FormatInt(int64(h.CPUCores), 10),
			strconv.FormatInt(h.MemoryMB, 10),
			itoa32(h.NICs),
			h.Vendor,
			h.Model,
			h.ObjectID,
			h.UUID,
			sdkUUID,
		})
	}
	return rows
}

func hostNICRows(nics []model.HostNIC) [][]string {
	rows := make([][]string, 0, len(nics))
	for _, n := range nics {
		rows = append(rows, []string{n.Host, n.Device, n.MAC, n.Switch})
	}
	return rows
}

func hostVMKRows(vmks []model.HostVMK) [][]string {
	rows := make([][]string, 0, len(vmks))
	for _, v := range vmks {
		rows = append(rows, []string{v.Host, v.MacAddress, v.IPAddress, v.IP6Address, v.SubnetMask})
	}
	return rows
}

func vswitchRows(switches []model.VSwitch) [][]string {
	rows := make([][]string, 0, len(switches))
	for _, s := range switches {
		rows = append(rows, []string{
			s.Host, s.Datacenter, s.Cluster, s.Switch,
			itoa32(s.Ports), itoa32(s.FreePorts),
			s.Promiscuous, s.MacChanges, s.ForgedTransmits,
			itoa32(s.MTU), s.SDKServer, s.SDKUUID,
		})
	}
	return rows
}

func dvswitchRows(switches []model.DVSwitch) [][]string {
	rows := make([][]string, 0, len(switches))
	for _, s := range switches {
		rows = append(rows, []string{
			s.Switch, s.Datacenter, s.Name, s.Vendor, s.Version, s.Description,
			s.Created, strconv.Itoa(s.HostMembers), itoa32(s.MaxPorts),
			itoa32(s.Ports), strconv.Itoa(s.VMs), s.SDKServer, s.SDKUUID,
		})
	}
	return rows
}

func portRows(ports []model.PortGroup) [][]string {
	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, []string{p.PortGroup, p.Switch, itoa32(p.VLAN)})
	}
	return rows
}

func dvportRows(ports []model.DVPortGroup) [][]string {
	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, []string{p.Port, p.Switch, p.VLAN})
	}
	return rows
}

func perfRows(perf []model.PerfRow) [][]string {
	rows := make([][]string, 0, len(perf))
	for _, p := range perf {
		rows = append(rows, []string{
			p.VMName, p.VMUUID,
			ftoa(p.MaxCPUPct), ftoa(p.AvgCPUPct),
			ftoa(p.MaxRAMPct), ftoa(p.AvgRAMPct),
			ftoa(p.MaxReadIO), ftoa(p.MaxWriteIO),
			p.Timestamp,
		})
	}
	return rows
}
