package check

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	nagios "github.com/atc0005/go-nagios"
	"go.uber.org/zap"

	"github.com/m-erhardt/check-vcenter/internal/config"
	"github.com/m-erhardt/check-vcenter/internal/vcenter"
)

// API is the slice of the vCenter client the check runner consumes.
type API interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ListVMs(ctx context.Context) ([]vcenter.VMSummary, error)
	GetVM(ctx context.Context, id string) (*vcenter.VMInfo, error)
	GetVMTools(ctx context.Context, id string) (*vcenter.ToolsInfo, error)
	ListHosts(ctx context.Context) ([]vcenter.HostSummary, error)
	ListDatastores(ctx context.Context) ([]vcenter.DatastoreSummary, error)
	GetDatastore(ctx context.Context, id string) (*vcenter.DatastoreInfo, error)
}

// Runner executes one check invocation: open a session, fetch the
// mode-specific resources sequentially, evaluate and aggregate.
type Runner struct {
	cfg *config.Config
	log *zap.Logger
	api API
}

// NewRunner creates a check runner.
func NewRunner(cfg *config.Config, log *zap.Logger, api API) *Runner {
	return &Runner{cfg: cfg, log: log, api: api}
}

// Run performs the check for the configured mode. It never returns an
// error: every failure is folded into the Result so the caller always
// emits exactly one plugin output block. The API session is closed exactly
// once on every path that opened one.
func (r *Runner) Run(ctx context.Context) Result {
	if err := r.api.Login(ctx); err != nil {
		return Fatal("Error during API auth request: %v", err)
	}
	defer func() {
		// Logout must still go out when the run was interrupted, so it
		// detaches from any cancellation; the HTTP timeout still bounds it.
		if err := r.api.Logout(context.WithoutCancel(ctx)); err != nil {
			// The primary result is already determined; a failed logout
			// must not change the exit code.
			r.log.Debug("Failed to close vCenter API session", zap.Error(err))
		}
	}()

	switch r.cfg.Mode {
	case "vms":
		return r.checkVMs(ctx)
	case "hosts":
		return r.checkHosts(ctx)
	case "datastores":
		return r.checkDatastores(ctx)
	default:
		// Unreachable after config validation.
		return Fatal("unsupported mode %q", r.cfg.Mode)
	}
}

// checkVMs lists all VMs, fetches each VM's power state and VMware Tools
// state, and aggregates. A failed detail lookup marks that one VM UNKNOWN.
func (r *Runner) checkVMs(ctx context.Context) Result {
	vms, err := r.api.ListVMs(ctx)
	if err != nil {
		return Fatal("Error during API request to /api/vcenter/vm: %v", err)
	}

	var on, off, suspended int
	res := Result{Severity: OK}

	for _, vm := range vms {
		obj := r.checkOneVM(ctx, vm)

		switch {
		case obj.Severity == Unknown:
			// Power state could not be determined; counted in total only.
		case vm.PowerState == vcenter.PowerStateOn:
			on++
		case vm.PowerState == vcenter.PowerStateOff:
			off++
		case vm.PowerState == vcenter.PowerStateSuspended:
			suspended++
		}

		res.Severity = Merge(res.Severity, obj.Severity)
		if obj.Detail != "" {
			res.Details = append(res.Details, obj.Detail)
		}
	}

	total := len(vms)
	if res.Severity == OK {
		res.Message = fmt.Sprintf("All %d VMs are in normal state (On: %d, Off: %d, Suspended: %d)", total, on, off, suspended)
	} else {
		res.Message = fmt.Sprintf("%d of %d VMs are not in normal state (On: %d, Off: %d, Suspended: %d)", len(res.Details), total, on, off, suspended)
	}

	res.PerfData = countPerfData(total, []countMetric{
		{"vm_on", on},
		{"vm_off", off},
		{"vm_suspended", suspended},
	})
	res.PerfData = append(res.PerfData, nagios.PerformanceData{
		Label: "vm_total",
		Value: strconv.Itoa(total),
	})
	return res
}

// checkOneVM evaluates a single VM via its detail and tools lookups.
func (r *Runner) checkOneVM(ctx context.Context, vm vcenter.VMSummary) ObjectResult {
	info, err := r.api.GetVM(ctx, vm.VM)
	if err != nil {
		r.log.Debug("VM detail lookup failed", zap.String("vm", vm.Name), zap.Error(err))
		return ObjectResult{
			Name:     vm.Name,
			Severity: Unknown,
			Detail:   fmt.Sprintf("%s: failed to query VM: %v", vm.Name, err),
		}
	}

	var tools *vcenter.ToolsInfo
	if info.PowerState == vcenter.PowerStateOn {
		tools, err = r.api.GetVMTools(ctx, vm.VM)
		if err != nil {
			if errors.Is(err, vcenter.ErrNotFound) {
				// Platform does not surface the tools endpoint.
				tools = nil
			} else {
				r.log.Debug("VM tools lookup failed", zap.String("vm", vm.Name), zap.Error(err))
				return ObjectResult{
					Name:     vm.Name,
					Severity: Unknown,
					Detail:   fmt.Sprintf("%s: failed to query VMware Tools: %v", vm.Name, err),
				}
			}
		}
	}

	return EvaluateVM(vm.Name, info.PowerState, tools)
}

// checkHosts lists all hosts and evaluates connection and power states.
// The list response carries both states, so no per-host detail call exists.
func (r *Runner) checkHosts(ctx context.Context) Result {
	hosts, err := r.api.ListHosts(ctx)
	if err != nil {
		return Fatal("Error during API request to /api/vcenter/host: %v", err)
	}

	var powerOn, powerOff, standby, connected, disconnected, notResponding int
	res := Result{Severity: OK}

	for _, h := range hosts {
		switch h.PowerState {
		case vcenter.PowerStateOn:
			powerOn++
		case vcenter.PowerStateOff:
			powerOff++
		case vcenter.PowerStateStandby:
			standby++
		}
		switch h.ConnectionState {
		case vcenter.ConnectionStateConnected:
			connected++
		case vcenter.ConnectionStateDisconnected:
			disconnected++
		case vcenter.ConnectionStateNotResponding:
			notResponding++
		}

		obj := EvaluateHost(h)
		res.Severity = Merge(res.Severity, obj.Severity)
		if obj.Detail != "" {
			res.Details = append(res.Details, obj.Detail)
		}
	}

	total := len(hosts)
	if res.Severity == OK {
		res.Message = fmt.Sprintf("All %d hosts are in normal state", total)
	} else {
		res.Message = fmt.Sprintf("%d of %d hosts are not in normal state", len(res.Details), total)
	}

	res.PerfData = countPerfData(total, []countMetric{
		{"power_on", powerOn},
		{"power_off", powerOff},
		{"power_standby", standby},
		{"conn_connected", connected},
		{"conn_disconnected", disconnected},
		{"conn_notresp", notResponding},
	})
	return res
}

// checkDatastores lists all datastores and fetches each one's capacity
// figures, comparing usage against the configured thresholds.
func (r *Runner) checkDatastores(ctx context.Context) Result {
	stores, err := r.api.ListDatastores(ctx)
	if err != nil {
		return Fatal("Error during API request to /api/vcenter/datastore: %v", err)
	}

	res := Result{Severity: OK}

	for _, ds := range stores {
		info, err := r.api.GetDatastore(ctx, ds.Datastore)
		if err != nil {
			r.log.Debug("Datastore detail lookup failed", zap.String("datastore", ds.Name), zap.Error(err))
			res.Severity = Merge(res.Severity, Unknown)
			res.Details = append(res.Details, fmt.Sprintf("%s: failed to query datastore: %v", ds.Name, err))
			continue
		}
		capacity, freeSpace := info.Capacity, info.FreeSpace

		obj := EvaluateDatastore(ds.Name, capacity, freeSpace, r.cfg.Disk)
		res.Severity = Merge(res.Severity, obj.Severity)
		if obj.Detail != "" {
			res.Details = append(res.Details, obj.Detail)
		}

		if capacity != 0 {
			res.PerfData = append(res.PerfData, nagios.PerformanceData{
				Label:             ds.Name,
				Value:             fmt.Sprintf("%.2f", UsagePercent(capacity, freeSpace)),
				UnitOfMeasurement: "%",
				Warn:              strconv.FormatFloat(r.cfg.Disk.WarnPct, 'f', -1, 64),
				Crit:              strconv.FormatFloat(r.cfg.Disk.CritPct, 'f', -1, 64),
				Min:               "0",
				Max:               "100",
			})
		}
	}

	total := len(stores)
	if res.Severity == OK {
		res.Message = fmt.Sprintf("All %d datastores below usage thresholds", total)
	} else {
		res.Message = fmt.Sprintf("%d of %d datastores are not in normal state", len(res.Details), total)
	}
	return res
}

type countMetric struct {
	label string
	count int
}

func countPerfData(total int, metrics []countMetric) []nagios.PerformanceData {
	max := strconv.Itoa(total)
	pd := make([]nagios.PerformanceData, 0, len(metrics))
	for _, m := range metrics {
		pd = append(pd, nagios.PerformanceData{
			Label: m.label,
			Value: strconv.Itoa(m.count),
			Min:   "0",
			Max:   max,
		})
	}
	return pd
}
