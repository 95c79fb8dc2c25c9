package duckdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glasshouse/vcexport/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testInventory() model.Inventory {
	return model.Inventory{
		Source: model.SourceInfo{
			FullName:   "VMware vCenter Server 8.0.2 build-22385739",
			ServerType: "VMware vCenter Server",
			APIVersion: "8.0.2.0",
			SDKUUID:    "2c5b9a30-1d6f-4f8a-9c7e-000000000001",
		},
		VMs: []model.VMSummary{
			{Name: "web-01", UUID: "uuid-1", PowerState: model.PoweredOn, GuestState: "running",
				PrimaryIPAddress: "10.0.0.1", CPUs: 4, MemoryMB: 8192, TotalDiskMiB: 40960,
				NICs: 1, Disks: 1, Host: "esx-01", ID: "vm-101"},
			{Name: "db-01", UUID: "uuid-2", PowerState: model.PoweredOn, GuestState: "running",
				PrimaryIPAddress: "10.0.0.2", CPUs: 8, MemoryMB: 32768, Host: "esx-02", ID: "vm-102"},
		},
		Hosts: []model.HostSummary{
			{Name: "esx-01"}, {Name: "esx-02"},
		},
		Performance: []model.PerfRow{
			{VMName: "web-01", VMUUID: "uuid-1", AvgCPUPct: 12.5, MaxCPUPct: 80,
				AvgRAMPct: 40, MaxRAMPct: 55, MaxReadIO: 4096, MaxWriteIO: 8192,
				Timestamp: "2026-08-31 12:00:00"},
		},
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vcexport.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.Close()

	// Reopening must not reapply migrations.
	store, err = NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	var applied int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("querying schema_migrations: %v", err)
	}
	if applied != 1 {
		t.Errorf("schema_migrations has %d rows, want 1", applied)
	}
}

func TestInsertExport(t *testing.T) {
	store := newTestStore(t)

	runID, err := store.InsertExport(context.Background(), testInventory(), time.Now())
	if err != nil {
		t.Fatalf("InsertExport: %v", err)
	}
	if runID == 0 {
		t.Error("run id should be non-zero")
	}

	var vmCount int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM vm_info WHERE run_id = ?", runID).Scan(&vmCount); err != nil {
		t.Fatalf("counting vm_info: %v", err)
	}
	if vmCount != 2 {
		t.Errorf("vm_info has %d rows for run, want 2", vmCount)
	}

	var name string
	var avgCPU float64
	err = store.DB().QueryRow(
		"SELECT vm_name, avg_cpu_pct FROM vm_performance WHERE run_id = ?", runID).Scan(&name, &avgCPU)
	if err != nil {
		t.Fatalf("querying vm_performance: %v", err)
	}
	if name != "web-01" || avgCPU != 12.5 {
		t.Errorf("performance row = %s/%v, want web-01/12.5", name, avgCPU)
	}
}

func TestInsertExportSuccessiveRuns(t *testing.T) {
	store := newTestStore(t)

	first, err := store.InsertExport(context.Background(), testInventory(), time.Now())
	if err != nil {
		t.Fatalf("first InsertExport: %v", err)
	}
	second, err := store.InsertExport(context.Background(), testInventory(), time.Now())
	if err != nil {
		t.Fatalf("second InsertExport: %v", err)
	}
	if second <= first {
		t.Errorf("run ids should increase: first=%d second=%d", first, second)
	}

	var runs int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM export_runs").Scan(&runs); err != nil {
		t.Fatalf("counting export_runs: %v", err)
	}
	if runs != 2 {
		t.Errorf("export_runs has %d rows, want 2", runs)
	}
}
