package check

import (
	"fmt"

	"github.com/m-erhardt/check-vcenter/internal/config"
	"github.com/m-erhardt/check-vcenter/internal/vcenter"
)

// ObjectResult is the derived state of one queried object.
type ObjectResult struct {
	Name     string
	Severity Severity
	Detail   string
}

// Fixed status-to-severity tables. Any status string outside these tables
// maps to UNKNOWN rather than guessing a severity.
var (
	hostConnectionSeverity = map[string]Severity{
		vcenter.ConnectionStateConnected:     OK,
		vcenter.ConnectionStateDisconnected:  Warning,
		vcenter.ConnectionStateNotResponding: Critical,
	}

	hostPowerSeverity = map[string]Severity{
		vcenter.PowerStateOn:      OK,
		vcenter.PowerStateStandby: Warning,
		vcenter.PowerStateOff:     Critical,
	}

	vmPowerSeverity = map[string]Severity{
		vcenter.PowerStateOn:        OK,
		vcenter.PowerStateOff:       Warning,
		vcenter.PowerStateSuspended: Warning,
	}
)

func severityFor(table map[string]Severity, state string) Severity {
	if sev, ok := table[state]; ok {
		return sev
	}
	return Unknown
}

// EvaluateHost derives a host's severity from its connection and power
// states, worst-wins.
func EvaluateHost(h vcenter.HostSummary) ObjectResult {
	connSev := severityFor(hostConnectionSeverity, h.ConnectionState)
	powerSev := severityFor(hostPowerSeverity, h.PowerState)

	res := ObjectResult{Name: h.Name, Severity: Merge(connSev, powerSev)}
	if res.Severity != OK {
		res.Detail = fmt.Sprintf("%s: connection_state %s, power_state %s", h.Name, h.ConnectionState, h.PowerState)
	}
	return res
}

// EvaluateVM derives a VM's severity from its power state and, when
// available, its VMware Tools run state. Tools state only degrades
// powered-on VMs.
func EvaluateVM(name, powerState string, tools *vcenter.ToolsInfo) ObjectResult {
	sev := severityFor(vmPowerSeverity, powerState)

	res := ObjectResult{Name: name, Severity: sev}
	if sev != OK {
		res.Detail = fmt.Sprintf("%s: power_state %s", name, powerState)
		return res
	}

	if tools != nil && tools.RunState != vcenter.ToolsRunning {
		res.Severity = Warning
		res.Detail = fmt.Sprintf("%s: VMware Tools %s", name, tools.RunState)
	}
	return res
}

// EvaluateDatastore compares a datastore's usage percentage against the
// configured thresholds. A zero capacity yields UNKNOWN, not a crash.
func EvaluateDatastore(name string, capacity, freeSpace int64, disk config.DiskConfig) ObjectResult {
	if capacity == 0 {
		return ObjectResult{
			Name:     name,
			Severity: Unknown,
			Detail:   fmt.Sprintf("%s: reported capacity is 0", name),
		}
	}

	usedPct := UsagePercent(capacity, freeSpace)

	res := ObjectResult{Name: name}
	switch {
	case usedPct >= disk.CritPct:
		res.Severity = Critical
	case usedPct >= disk.WarnPct:
		res.Severity = Warning
	default:
		res.Severity = OK
	}

	if res.Severity != OK {
		res.Detail = fmt.Sprintf("%s: %.2f%% used (warn %g%%, crit %g%%)", name, usedPct, disk.WarnPct, disk.CritPct)
	}
	return res
}

// UsagePercent returns the used fraction of a datastore in percent.
// Callers must ensure capacity is non-zero.
func UsagePercent(capacity, freeSpace int64) float64 {
	return float64(capacity-freeSpace) / float64(capacity) * 100
}
