package units

import "strings"

// ActiveState is the coarse run state reported by the service manager,
// upper-cased.
type ActiveState string

const (
	StateActive       ActiveState = "ACTIVE"
	StateInactive     ActiveState = "INACTIVE"
	StateFailed       ActiveState = "FAILED"
	StateActivating   ActiveState = "ACTIVATING"
	StateDeactivating ActiveState = "DEACTIVATING"
	StateUnknown      ActiveState = "UNKNOWN"
)

// ParseActiveState maps a raw manager state onto the known set.
// Anything unrecognised (including empty) is StateUnknown.
func ParseActiveState(raw string) ActiveState {
	switch ActiveState(strings.ToUpper(strings.TrimSpace(raw))) {
	case StateActive:
		return StateActive
	case StateInactive:
		return StateInactive
	case StateFailed:
		return StateFailed
	case StateActivating:
		return StateActivating
	case StateDeactivating:
		return StateDeactivating
	default:
		return StateUnknown
	}
}

// ResourceSource selects where a status record's CPU and memory come from.
//
// The two sources measure different things and are not reconciled:
//   - ManagerCounters: CPU is cumulative CPU seconds (CPUUsageNSec), Memory is
//     resident megabytes (MemoryCurrent).
//   - ProcessTable: CPU and Memory are instantaneous %CPU / %MEM summed over
//     every process whose name matches the unit.
type ResourceSource string

const (
	ManagerCounters ResourceSource = "manager_counters"
	ProcessTable    ResourceSource = "process_table"
)

// ParseResourceSource returns ManagerCounters for anything but "process_table".
func ParseResourceSource(s string) ResourceSource {
	if ResourceSource(strings.ToLower(strings.TrimSpace(s))) == ProcessTable {
		return ProcessTable
	}
	return ManagerCounters
}

// NotAvailable is the uptime sentinel used when the manager reports none.
const NotAvailable = "N/A"

// ServiceStatus is recomputed on every query and always fully populated.
type ServiceStatus struct {
	Name         string         `json:"name"`
	ActiveState  ActiveState    `json:"status"`
	SubState     string         `json:"sub"`
	CPU          float64        `json:"cpu"`
	Memory       float64        `json:"memory"`
	Threads      int            `json:"threads"`
	Uptime       string         `json:"uptime"`
	RestartCount int            `json:"restart_count"`
	Source       ResourceSource `json:"resource_source"`
}

// failedStatus is returned when the manager cannot introspect a unit at all.
func failedStatus(name string, src ResourceSource) ServiceStatus {
	return ServiceStatus{
		Name:        name,
		ActiveState: StateFailed,
		SubState:    string(StateFailed),
		Uptime:      NotAvailable,
		Source:      src,
	}
}

// Resources is the process-table aggregate for one unit.
type Resources struct {
	CPUPercent    float64 `json:"cpu"`
	MemoryPercent float64 `json:"memory"`
	Threads       int     `json:"threads"`
}

// UnitSummary is one row of the manager's unit listing.
type UnitSummary struct {
	Name        string `json:"name"`
	LoadState   string `json:"load"`
	ActiveState string `json:"active"`
	SubState    string `json:"sub"`
	Description string `json:"description"`
}

// ActionResult is the outcome of a lifecycle action. Output is the manager's
// trimmed stdout on success and trimmed stderr on failure.
type ActionResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}
