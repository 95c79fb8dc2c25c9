// Package model defines the flattened inventory records produced by the
// vSphere adapter and consumed by the filter, export, and sink layers.
// Optional managed-object attributes are resolved at the adapter boundary;
// everything here is a plain value with empty-string defaults.
package model

// Power states as reported by vCenter.
const (
	PoweredOn  = "poweredOn"
	PoweredOff = "poweredOff"
	Suspended  = "suspended"

	// GuestNotRunning is the guest-tools state that excludes a VM from
	// export even when the power state says otherwise.
	GuestNotRunning = "notRunning"
)

// SourceInfo describes the vCenter endpoint an export was taken from.
type SourceInfo struct {
	Name       string
	APIVersion string
	Vendor     string
	FullName   string
	ServerType string
	SDKUUID    string
}

// VMSummary is one row of the main VM table. Name is not guaranteed unique;
// UUID is the intended-unique identity and may be empty.
type VMSummary struct {
	Name             string
	PowerState       string
	GuestState       string
	Template         bool
	DNSName          string
	CPUs             int32
	MemoryMB         int32
	TotalDiskMiB     int64
	NICs             int
	Disks            int
	Host             string
	ConfigGuestOS    string
	ToolsGuestOS     string
	PrimaryIPAddress string
	ID               string
	UUID             string
}

// VMNetwork is one row per guest NIC.
type VMNetwork struct {
	VM          string
	Network     string
	IPv4Address string
	IPv6Address string
	Switch      string
	MacAddress  string
}

// VMCPU is one row per VM in the CPU table.
type VMCPU struct {
	VM          string
	CPUs        int32
	Sockets     int32
	Reservation int64
}

// VMMemory is one row per VM in the memory table.
type VMMemory struct {
	VM          string
	SizeMiB     int32
	Reservation int64
}

// VMDisk is one row per virtual disk.
type VMDisk struct {
	VM          string
	Disk        string
	DiskKey     int32
	DiskPath    string
	CapacityMiB int64
}

// VMPartition is one row per virtual disk with guest free-space when the
// guest reports a matching mount.
type VMPartition struct {
	VM          string
	DiskKey     int32
	Disk        string
	CapacityMiB int64
	FreeMiB     string
}

// VMTools is one row per VM in the tools-status table.
type VMTools struct {
	VM    string
	Tools string
}

// HostSummary is one row per ESXi host.
type HostSummary struct {
	Name     string
	CPUPkgs  int16
	CPUCores int16
	MemoryMB int64
	NICs     int32
	Vendor   string
	Model    string
	ObjectID string
	UUID     string
	SDKUUID  string
}

// HostNIC is one row per physical host NIC.
type HostNIC struct {
	Host   string
	Device string
	MAC    string
	Switch string
}

// HostVMK is one row per host VMkernel adapter.
type HostVMK struct {
	Host       string
	MacAddress string
	IPAddress  string
	IP6Address string
	SubnetMask string
}

// VSwitch is one row per standard virtual switch on a host.
type VSwitch struct {
	Host            string
	Datacenter      string
	Cluster         string
	Switch          string
	Ports           int32
	FreePorts       int32
	Promiscuous     string
	MacChanges      string
	ForgedTransmits string
	MTU             int32
	SDKServer       string
	SDKUUID         string
}

// DVSwitch is one row per distributed virtual switch.
type DVSwitch struct {
	Switch      string
	Datacenter  string
	Name        string
	Vendor      string
	Version     string
	Description string
	Created     string
	HostMembers int
	MaxPorts    int32
	Ports       int32
	VMs         int
	SDKServer   string
	SDKUUID     string
}

// PortGroup is one row per standard port group.
type PortGroup struct {
	PortGroup string
	Switch    string
	VLAN      int32
}

// DVPortGroup is one row per distributed port group.
type DVPortGroup struct {
	Port   string
	Switch string
	VLAN   string
}

// PerfRow is the summarized performance record for one VM.
type PerfRow struct {
	VMName     string
	VMUUID     string
	MaxCPUPct  float64
	AvgCPUPct  float64
	MaxRAMPct  float64
	AvgRAMPct  float64
	MaxReadIO  float64
	MaxWriteIO float64
	Timestamp  string
}

// Inventory bundles everything one collection run produces for the sinks.
type Inventory struct {
	Source      SourceInfo
	VMs         []VMSummary
	VMNetworks  []VMNetwork
	VMCPUs      []VMCPU
	VMMemory    []VMMemory
	VMDisks     []VMDisk
	VMPartition []VMPartition
	VMTools     []VMTools
	Hosts       []HostSummary
	HostNICs    []HostNIC
	HostVMKs    []HostVMK
	VSwitches   []VSwitch
	DVSwitches  []DVSwitch
	PortGroups  []PortGroup
	DVPorts     []DVPortGroup
	Performance []PerfRow
}
