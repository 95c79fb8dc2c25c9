package vsphere

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vmware/govmomi/performance"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
	"golang.org/x/sync/errgroup"

	"github.com/glasshouse/vcexport/internal/model"
	"github.com/glasshouse/vcexport/internal/sampling"
)

// Counters queried per VM. cpu and mem summarize as avg+max percentages,
// the virtualDisk IO sizes as max across all disk instances.
var perfCounterNames = []string{
	"cpu.usage.average",
	"mem.usage.average",
	"virtualDisk.readIOSize.latest",
	"virtualDisk.writeIOSize.latest",
}

const (
	defaultPerfBatchSize   = 10
	defaultPerfConcurrency = 3
)

// PerfCollector queries summarized performance statistics for VMs in
// batches, to avoid hammering the stats subsystem with one giant query.
type PerfCollector struct {
	m           *performance.Manager
	BatchSize   int
	Concurrency int
}

// NewPerfCollector creates a performance collector over the client.
func NewPerfCollector(c *vim25.Client) *PerfCollector {
	return &PerfCollector{
		m:           performance.NewManager(c),
		BatchSize:   defaultPerfBatchSize,
		Concurrency: defaultPerfConcurrency,
	}
}

// Collect queries the plan's tier for every powered-on VM in vms and
// returns one summarized row per VM that yielded samples. Batches run with
// bounded parallelism; the first failing batch aborts the rest.
func (p *PerfCollector) Collect(ctx context.Context, vms []mo.VirtualMachine, plan sampling.Plan, windowMinutes int) ([]model.PerfRow, error) {
	targets := make([]mo.VirtualMachine, 0, len(vms))
	for _, vm := range vms {
		if vm.Runtime.PowerState == types.VirtualMachinePowerStatePoweredOn {
			targets = append(targets, vm)
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	log.Printf("vsphere: collecting %d-minute window using %s sampling (%d samples) for %d VMs",
		windowMinutes, plan.Label, plan.Samples, len(targets))

	endTime := time.Now()
	startTime := endTime.Add(-time.Duration(windowMinutes) * time.Minute)

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultPerfBatchSize
	}
	batches := make([][]mo.VirtualMachine, 0, (len(targets)+batchSize-1)/batchSize)
	for start := 0; start < len(targets); start += batchSize {
		end := start + batchSize
		if end > len(targets) {
			end = len(targets)
		}
		batches = append(batches, targets[start:end])
	}

	results := make([][]model.PerfRow, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = defaultPerfConcurrency
	}
	g.SetLimit(concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			log.Printf("vsphere: processing batch %d/%d (%d VMs)", i+1, len(batches), len(batch))
			rows, err := p.collectBatch(gctx, batch, plan, startTime, endTime)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []model.PerfRow
	for _, batch := range results {
		rows = append(rows, batch...)
	}
	return rows, nil
}

func (p *PerfCollector) collectBatch(ctx context.Context, vms []mo.VirtualMachine, plan sampling.Plan, startTime, endTime time.Time) ([]model.PerfRow, error) {
	refs := make([]types.ManagedObjectReference, 0, len(vms))
	byRef := make(map[types.ManagedObjectReference]mo.VirtualMachine, len(vms))
	for _, vm := range vms {
		refs = append(refs, vm.Self)
		byRef[vm.Self] = vm
	}

	spec := types.PerfQuerySpec{
		MaxSample:  plan.Samples,
		MetricId:   []types.PerfMetricId{{Instance: "*"}},
		IntervalId: plan.IntervalID,
		StartTime:  &startTime,
		EndTime:    &endTime,
	}

	sample, err := p.m.SampleByName(ctx, spec, perfCounterNames, refs)
	if err != nil {
		return nil, fmt.Errorf("vsphere: query performance samples: %w", err)
	}
	metrics, err := p.m.ToMetricSeries(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("vsphere: convert performance samples: %w", err)
	}

	timestamp := endTime.Format("2006-01-02 15:04:05")
	rows := make([]model.PerfRow, 0, len(metrics))
	for _, entity := range metrics {
		vm, ok := byRef[entity.Entity]
		if !ok {
			continue
		}
		row := summarizeMetrics(entity.Value)
		row.VMName = vm.Name
		if vm.Config != nil {
			row.VMUUID = vm.Config.Uuid
		}
		row.Timestamp = timestamp
		rows = append(rows, row)
	}
	return rows, nil
}

// summarizeMetrics reduces raw counter series into the per-VM summary row.
// Percent counters arrive in hundredths of a percent and are reported as
// decimal percentages.
func summarizeMetrics(series []performance.MetricSeries) model.PerfRow {
	var row model.PerfRow
	for _, s := range series {
		switch s.Name {
		case "cpu.usage.average":
			// Only the aggregate instance; per-core series also arrive
			// under the wildcard query.
			if s.Instance == "" {
				row.AvgCPUPct = round2(mean(s.Value) / 100)
				row.MaxCPUPct = round2(float64(maxValue(s.Value)) / 100)
			}
		case "mem.usage.average":
			if s.Instance == "" {
				row.AvgRAMPct = round2(mean(s.Value) / 100)
				row.MaxRAMPct = round2(float64(maxValue(s.Value)) / 100)
			}
		case "virtualDisk.readIOSize.latest":
			if v := float64(maxValue(s.Value)); v > row.MaxReadIO {
				row.MaxReadIO = v
			}
		case "virtualDisk.writeIOSize.latest":
			if v := float64(maxValue(s.Value)); v > row.MaxWriteIO {
				row.MaxWriteIO = v
			}
		}
	}
	return row
}

func mean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func maxValue(values []int64) int64 {
	var max int64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
