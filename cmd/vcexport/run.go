package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vmware/govmomi/vim25/mo"

	"github.com/glasshouse/vcexport/internal/duckdb"
	"github.com/glasshouse/vcexport/internal/export"
	"github.com/glasshouse/vcexport/internal/filter"
	"github.com/glasshouse/vcexport/internal/httpserver"
	"github.com/glasshouse/vcexport/internal/model"
	"github.com/glasshouse/vcexport/internal/sampling"
	"github.com/glasshouse/vcexport/internal/upload"
	"github.com/glasshouse/vcexport/internal/vsphere"
)

// runExport runs one collection cycle: connect, retrieve, filter, flatten,
// sample statistics, write CSVs, archive, then feed the optional sinks.
func runExport(cfg appConfig) error {
	log.SetFlags(log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nAborting export...")
		cancel()
	}()

	progress := httpserver.NewProgress()
	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, progress)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start status API: %w", err)
		}
		defer apiServer.Stop()
	}

	if err := collectAndExport(ctx, cfg, progress); err != nil {
		progress.Fail(err)
		return err
	}
	progress.SetPhase("done")
	return nil
}

func collectAndExport(ctx context.Context, cfg appConfig, progress *httpserver.Progress) error {
	collectedAt := time.Now()

	skipPatterns, err := filter.LoadSkipList(cfg.VMSkipFile)
	if err != nil {
		return fmt.Errorf("loading skip list: %w", err)
	}
	if len(skipPatterns) > 0 {
		log.Printf("vcexport: loaded %d skip patterns from %s", len(skipPatterns), cfg.VMSkipFile)
	}

	progress.SetPhase("connecting")
	client, err := vsphere.Connect(ctx, vsphere.ClientConfig{
		Host:     cfg.Server,
		User:     cfg.Username,
		Password: cfg.Password,
		Insecure: cfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Server, err)
	}
	defer client.Logout(context.Background())

	col := vsphere.NewCollector(client.Vim())
	src := col.Source()
	log.Printf("vcexport: connected to %s (%s)", cfg.Server, src.FullName)

	progress.SetPhase("collecting inventory")
	inv, keptVMs, err := collectInventory(ctx, cfg, col, src, skipPatterns, progress)
	if err != nil {
		return err
	}

	if cfg.Statistics {
		progress.SetPhase("collecting statistics")
		plan, err := sampling.SelectPlan(cfg.PerfInterval)
		if err != nil {
			return fmt.Errorf("selecting sampling plan: %w", err)
		}
		perf := vsphere.NewPerfCollector(client.Vim())
		perf.BatchSize = cfg.PerfBatchSize
		perf.Concurrency = cfg.PerfConcurrency
		rows, err := perf.Collect(ctx, keptVMs, plan, cfg.PerfInterval)
		if err != nil {
			return fmt.Errorf("collecting statistics: %w", err)
		}
		inv.Performance = rows
	}

	progress.SetPhase("writing export")
	writer, err := export.NewWriter(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("preparing output dir: %w", err)
	}
	if err := writer.WriteAll(inv); err != nil {
		return fmt.Errorf("writing CSV tables: %w", err)
	}

	zipPath := filepath.Join(cfg.OutputDir, export.DefaultArchiveName)
	if err := export.Archive(zipPath, writer.Written(), !cfg.KeepCSV); err != nil {
		return fmt.Errorf("archiving export: %w", err)
	}
	log.Printf("vcexport: archive written to %s", zipPath)

	if cfg.DBPath != "" {
		store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()
		if _, err := store.InsertExport(ctx, *inv, collectedAt); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
	}

	if cfg.UploadEnabled {
		progress.SetPhase("uploading")
		uploader, err := upload.NewS3Uploader(upload.S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		})
		if err != nil {
			return fmt.Errorf("configuring upload: %w", err)
		}
		if _, err := uploader.UploadArchive(ctx, zipPath, collectedAt); err != nil {
			return err
		}
	}

	return nil
}

// collectInventory retrieves everything from vCenter and filters the VM set.
// It returns the flattened inventory plus the kept VMs as managed objects,
// which the statistics collector queries by reference.
func collectInventory(ctx context.Context, cfg appConfig, col *vsphere.Collector, src model.SourceInfo, skipPatterns []filter.Pattern, progress *httpserver.Progress) (*model.Inventory, []mo.VirtualMachine, error) {
	hosts, err := col.Hosts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving hosts: %w", err)
	}
	topo, err := col.Topology(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving topology: %w", err)
	}
	switches, err := col.DistributedSwitches(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving distributed switches: %w", err)
	}
	portGroups, err := col.DistributedPortGroups(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving distributed port groups: %w", err)
	}
	vms, err := col.VirtualMachines(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving virtual machines: %w", err)
	}
	log.Printf("vcexport: retrieved %d VMs, %d hosts, %d distributed switches", len(vms), len(hosts), len(switches))

	if cfg.MaxCount > 0 && len(vms) > cfg.MaxCount {
		log.Printf("vcexport: capping VM set at %d (of %d)", cfg.MaxCount, len(vms))
		vms = vms[:cfg.MaxCount]
	}

	hostNames := vsphere.HostNames(hosts)
	dvsNames := vsphere.DVSNames(switches)
	dvsRefNames := vsphere.DVSRefNames(switches)

	summaries := make([]model.VMSummary, 0, len(vms))
	for _, vm := range vms {
		summaries = append(summaries, vsphere.FlattenVM(vm, hostNames))
	}

	kept, ledger := filter.FilterVMs(summaries, skipPatterns)
	progress.SetCounts(len(vms), len(kept), len(ledger.Duplicates))
	for _, line := range ledger.Summary() {
		log.Printf("vcexport: duplicate UUID %s", line)
	}
	log.Printf("vcexport: keeping %d of %d VMs", len(kept), len(vms))

	keptIDs := make(map[string]bool, len(kept))
	for _, rec := range kept {
		keptIDs[rec.ID] = true
	}
	keptVMs := make([]mo.VirtualMachine, 0, len(kept))
	for _, vm := range vms {
		if keptIDs[vm.Self.Value] {
			keptVMs = append(keptVMs, vm)
		}
	}

	inv := &model.Inventory{
		Source: src,
		VMs:    kept,
		Hosts:  make([]model.HostSummary, 0, len(hosts)),
	}
	for _, vm := range keptVMs {
		inv.VMNetworks = append(inv.VMNetworks, vsphere.FlattenVMNetworks(vm, dvsNames)...)
		inv.VMCPUs = append(inv.VMCPUs, vsphere.FlattenVMCPU(vm))
		inv.VMMemory = append(inv.VMMemory, vsphere.FlattenVMMemory(vm))
		inv.VMDisks = append(inv.VMDisks, vsphere.FlattenVMDisks(vm)...)
		inv.VMPartition = append(inv.VMPartition, vsphere.FlattenVMPartitions(vm)...)
		inv.VMTools = append(inv.VMTools, vsphere.FlattenVMTools(vm))
	}
	for _, h := range hosts {
		inv.Hosts = append(inv.Hosts, vsphere.FlattenHost(h, src.SDKUUID))
		inv.HostNICs = append(inv.HostNICs, vsphere.FlattenHostNICs(h)...)
		inv.HostVMKs = append(inv.HostVMKs, vsphere.FlattenHostVMKs(h)...)
		inv.VSwitches = append(inv.VSwitches, vsphere.FlattenVSwitches(h, topo, src)...)
		inv.PortGroups = append(inv.PortGroups, vsphere.FlattenPortGroups(h)...)
	}
	for _, s := range switches {
		inv.DVSwitches = append(inv.DVSwitches, vsphere.FlattenDVS(s, topo, src))
	}
	for _, pg := range portGroups {
		inv.DVPorts = append(inv.DVPorts, vsphere.FlattenDVPortGroup(pg, dvsRefNames))
	}

	return inv, keptVMs, nil
}
