// Package export writes the flattened inventory to RVTools-style CSV files
// and bundles them into a zip archive.
package export

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/glasshouse/vcexport/internal/model"
)

// File names follow the RVTools tab naming the downstream tooling expects.
const (
	FileInfo        = "RVTools_tabvInfo.csv"
	FileNetwork     = "RVTools_tabvNetwork.csv"
	FileCPU         = "RVTools_tabvCPU.csv"
	FileMemory      = "RVTools_tabvMemory.csv"
	FileDisk        = "RVTools_tabvDisk.csv"
	FilePartition   = "RVTools_tabvPartition.csv"
	FileSource      = "RVTools_tabvSource.csv"
	FileTools       = "RVTools_tabvTools.csv"
	FileHost        = "RVTools_tabvHost.csv"
	FileHostNIC     = "RVTools_tabvNIC.csv"
	FileHostVMK     = "RVTools_tabvSC_VMK.csv"
	FileVSwitch     = "RVTools_tabvSwitch.csv"
	FileDVSwitch    = "RVTools_tabdvSwitch.csv"
	FilePort        = "RVTools_tabvPort.csv"
	FileDVPort      = "RVTools_tabdvPort.csv"
	FilePerformance = "vcexport_tabvPerformance.csv"
)

// Writer emits one CSV file per record kind into an output directory and
// remembers what it wrote so the archiver can bundle and purge.
type Writer struct {
	outputDir string
	written   []string
}

// NewWriter creates a CSV writer rooted at outputDir, creating the
// directory when needed.
func NewWriter(outputDir string) (*Writer, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("export: create output dir: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// Written returns the paths of every CSV produced so far, in write order.
func (w *Writer) Written() []string { return w.written }

func (w *Writer) writeTable(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header of %s: %w", name, err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row of %s: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush %s: %w", name, err)
	}

	w.written = append(w.written, path)
	return nil
}

// WriteAll writes every table of the inventory. Empty tables still produce
// a header-only file so the archive shape is stable across environments.
func (w *Writer) WriteAll(inv *model.Inventory) error {
	tables := []struct {
		name   string
		header []string
		rows   [][]string
		count  int
	}{
		{FileInfo, infoHeader, infoRows(inv), len(inv.VMs)},
		{FileNetwork, networkHeader, networkRows(inv.VMNetworks), len(inv.VMNetworks)},
		{FileCPU, cpuHeader, cpuRows(inv.VMCPUs), len(inv.VMCPUs)},
		{FileMemory, memoryHeader, memoryRows(inv.VMMemory), len(inv.VMMemory)},
		{FileDisk, diskHeader, diskRows(inv.VMDisks), len(inv.VMDisks)},
		{FilePartition, partitionHeader, partitionRows(inv.VMPartition), len(inv.VMPartition)},
		{FileSource, sourceHeader, sourceRows(inv.Source), 1},
		{FileTools, toolsHeader, toolsRows(inv.VMTools), len(inv.VMTools)},
		{FileHost, hostHeader, hostRows(inv.Hosts, inv.Source.SDKUUID), len(inv.Hosts)},
		{FileHostNIC, hostNICHeader, hostNICRows(inv.HostNICs), len(inv.HostNICs)},
		{FileHostVMK, hostVMKHeader, hostVMKRows(inv.HostVMKs), len(inv.HostVMKs)},
		{FileVSwitch, vswitchHeader, vswitchRows(inv.VSwitches), len(inv.VSwitches)},
		{FileDVSwitch, dvswitchHeader, dvswitchRows(inv.DVSwitches), len(inv.DVSwitches)},
		{FilePort, portHeader, portRows(inv.PortGroups), len(inv.PortGroups)},
		{FileDVPort, dvportHeader, dvportRows(inv.DVPorts), len(inv.DVPorts)},
		{FilePerformance, perfHeader, perfRows(inv.Performance), len(inv.Performance)},
	}

	for _, tbl := range tables {
		if err := w.writeTable(tbl.name, tbl.header, tbl.rows); err != nil {
			return err
		}
		log.Printf("export: wrote %d rows to %s", tbl.count, tbl.name)
	}
	return nil
}

func itoa32(v int32) string { return strconv.FormatInt(int64(v), 10) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
