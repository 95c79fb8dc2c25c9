package filter

import (
	"log"
	"sort"
	"strings"

	"github.com/glasshouse/vcexport/internal/model"
)

// Ledger tracks UUID deduplication for one collection run. The first record
// seen with a UUID wins; every later record with the same UUID is recorded
// under that UUID. The ledger has no life beyond a single run.
type Ledger struct {
	seen       map[string]struct{}
	Duplicates map[string][]string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		seen:       make(map[string]struct{}),
		Duplicates: make(map[string][]string),
	}
}

// Register records uuid as seen and reports whether it was already present.
// An empty uuid is never a duplicate and does not touch the seen set.
func (l *Ledger) Register(uuid, name string) bool {
	if uuid == "" {
		return false
	}
	if _, ok := l.seen[uuid]; ok {
		l.Duplicates[uuid] = append(l.Duplicates[uuid], name)
		return true
	}
	l.seen[uuid] = struct{}{}
	return false
}

// Summary returns one line per duplicated UUID with the names that were
// dropped, sorted by UUID for stable output. Empty when no duplicates.
func (l *Ledger) Summary() []string {
	if len(l.Duplicates) == 0 {
		return nil
	}
	uuids := make([]string, 0, len(l.Duplicates))
	for uuid := range l.Duplicates {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	lines := make([]string, 0, len(uuids))
	for _, uuid := range uuids {
		lines = append(lines, uuid+": "+strings.Join(l.Duplicates[uuid], ", "))
	}
	return lines
}

// IsRunning reports whether the power and guest states indicate a VM that
// should be processed. A poweredOff VM or a guest reporting notRunning is
// excluded regardless of the other state.
func IsRunning(powerState, guestState string) bool {
	if powerState == model.PoweredOff {
		return false
	}
	if guestState == model.GuestNotRunning {
		return false
	}
	return true
}

// FilterVMs applies the four exclusion checks to records in input order:
// skip-pattern match, running state, non-empty primary IP, duplicate UUID.
// Each check short-circuits the rest for that record. Only duplicates are
// tracked in the returned ledger; the other exclusions are logged and
// dropped. Re-running on the returned slice with a fresh ledger drops
// nothing further.
func FilterVMs(records []model.VMSummary, patterns []Pattern) ([]model.VMSummary, *Ledger) {
	ledger := NewLedger()
	kept := make([]model.VMSummary, 0, len(records))

	for _, rec := range records {
		if ShouldSkip(rec.Name, patterns) {
			log.Printf("filter: skipping VM %s (matches skip list)", rec.Name)
			continue
		}
		if !IsRunning(rec.PowerState, rec.GuestState) {
			log.Printf("filter: skipping VM %s (powered off or guest not running)", rec.Name)
			continue
		}
		if rec.PrimaryIPAddress == "" {
			log.Printf("filter: skipping VM %s (no primary IP address)", rec.Name)
			continue
		}
		if ledger.Register(rec.UUID, rec.Name) {
			log.Printf("filter: skipping VM %s (duplicate UUID %s)", rec.Name, rec.UUID)
			continue
		}
		kept = append(kept, rec)
	}
	return kept, ledger
}
