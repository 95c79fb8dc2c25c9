package duckdb

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/glasshouse/vcexport/internal/model"
)

// InsertExport records one collection run: a row in export_runs plus the
// VM inventory and performance summaries, all in a single transaction.
// It returns the run id.
func (s *Store) InsertExport(ctx context.Context, inv model.Inventory, collectedAt time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var runID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO export_runs (collected_at, server_name, server_type, api_version, instance_uuid, vm_count, host_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		collectedAt, inv.Source.FullName, inv.Source.ServerType, inv.Source.APIVersion,
		inv.Source.SDKUUID, len(inv.VMs), len(inv.Hosts),
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert export run: %w", err)
	}

	vmStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vm_info (run_id, name, uuid, power_state, guest_state, dns_name, primary_ip, cpus, memory_mb, disk_mib, nics, disks, host, guest_os, object_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer vmStmt.Close()

	for _, vm := range inv.VMs {
		if _, err := vmStmt.ExecContext(
			ctx,
			runID, vm.Name, vm.UUID, vm.PowerState, vm.GuestState,
			vm.DNSName, vm.PrimaryIPAddress, vm.CPUs, vm.MemoryMB,
			vm.TotalDiskMiB, vm.NICs, vm.Disks, vm.Host, vm.ConfigGuestOS, vm.ID,
		); err != nil {
			return 0, fmt.Errorf("insert vm %s: %w", vm.Name, err)
		}
	}

	perfStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vm_performance (run_id, vm_name, vm_uuid, avg_cpu_pct, max_cpu_pct, avg_ram_pct, max_ram_pct, max_read_io, max_write_io, sampled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer perfStmt.Close()

	for _, p := range inv.Performance {
		if _, err := perfStmt.ExecContext(
			ctx,
			runID, p.VMName, p.VMUUID, p.AvgCPUPct, p.MaxCPUPct,
			p.AvgRAMPct, p.MaxRAMPct, p.MaxReadIO, p.MaxWriteIO, p.Timestamp,
		); err != nil {
			return 0, fmt.Errorf("insert performance row for %s: %w", p.VMName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true

	log.Printf("duckdb: recorded run %d (%d VMs, %d performance rows)", runID, len(inv.VMs), len(inv.Performance))
	return runID, nil
}
