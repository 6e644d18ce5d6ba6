package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/m-erhardt/check-vcenter/internal/config"
	"github.com/m-erhardt/check-vcenter/internal/vcenter"
)

// fakeAPI is a scriptable session collaborator for runner tests. It counts
// Login/Logout invocations to verify the session lifecycle.
type fakeAPI struct {
	loginErr    error
	loginCalls  int
	logoutCalls int

	vms      []vcenter.VMSummary
	vmsErr   error
	vmInfos  map[string]*vcenter.VMInfo
	vmErrs   map[string]error
	tools    map[string]*vcenter.ToolsInfo
	toolsErr map[string]error

	hosts    []vcenter.HostSummary
	hostsErr error

	stores    []vcenter.DatastoreSummary
	storesErr error
	storeErrs map[string]error
}

func (f *fakeAPI) Login(ctx context.Context) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCalls++
	return nil
}

func (f *fakeAPI) ListVMs(ctx context.Context) ([]vcenter.VMSummary, error) {
	return f.vms, f.vmsErr
}

func (f *fakeAPI) GetVM(ctx context.Context, id string) (*vcenter.VMInfo, error) {
	if err, ok := f.vmErrs[id]; ok {
		return nil, err
	}
	if info, ok := f.vmInfos[id]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("unexpected GetVM(%s)", id)
}

func (f *fakeAPI) GetVMTools(ctx context.Context, id string) (*vcenter.ToolsInfo, error) {
	if err, ok := f.toolsErr[id]; ok {
		return nil, err
	}
	if tools, ok := f.tools[id]; ok {
		return tools, nil
	}
	return nil, fmt.Errorf("GetVMTools(%s): %w", id, vcenter.ErrNotFound)
}

func (f *fakeAPI) ListHosts(ctx context.Context) ([]vcenter.HostSummary, error) {
	return f.hosts, f.hostsErr
}

func (f *fakeAPI) ListDatastores(ctx context.Context) ([]vcenter.DatastoreSummary, error) {
	return f.stores, f.storesErr
}

func (f *fakeAPI) GetDatastore(ctx context.Context, id string) (*vcenter.DatastoreInfo, error) {
	if err, ok := f.storeErrs[id]; ok {
		return nil, err
	}
	for _, ds := range f.stores {
		if ds.Datastore == id {
			return &vcenter.DatastoreInfo{
				Name:      ds.Name,
				Capacity:  ds.Capacity,
				FreeSpace: ds.FreeSpace,
			}, nil
		}
	}
	return nil, fmt.Errorf("unexpected GetDatastore(%s)", id)
}

func newTestRunner(mode string, api API) *Runner {
	cfg := config.DefaultConfig()
	cfg.Mode = mode
	return NewRunner(cfg, zap.NewNop(), api)
}

func TestRunHosts_AllOK(t *testing.T) {
	api := &fakeAPI{
		hosts: []vcenter.HostSummary{
			{Host: "host-1", Name: "esx01", ConnectionState: "CONNECTED", PowerState: "POWERED_ON"},
			{Host: "host-2", Name: "esx02", ConnectionState: "CONNECTED", PowerState: "POWERED_ON"},
		},
	}

	res := newTestRunner("hosts", api).Run(context.Background())

	if res.Severity != OK {
		t.Errorf("severity = %s, want OK", res.Severity)
	}
	if res.Message != "All 2 hosts are in normal state" {
		t.Errorf("message = %q", res.Message)
	}
	if len(res.Details) != 0 {
		t.Errorf("details = %v, want none", res.Details)
	}
	if api.logoutCalls != 1 {
		t.Errorf("logout called %d times, want exactly 1", api.logoutCalls)
	}
}

// Three hosts in states connected, disconnected and notResponding must
// yield an overall CRITICAL (exit code 2) with exactly two detail lines.
func TestRunHosts_DegradedStates(t *testing.T) {
	api := &fakeAPI{
		hosts: []vcenter.HostSummary{
			{Host: "host-1", Name: "esx01", ConnectionState: "CONNECTED", PowerState: "POWERED_ON"},
			{Host: "host-2", Name: "esx02", ConnectionState: "DISCONNECTED", PowerState: "POWERED_ON"},
			{Host: "host-3", Name: "esx03", ConnectionState: "NOT_RESPONDING", PowerState: "POWERED_ON"},
		},
	}

	res := newTestRunner("hosts", api).Run(context.Background())

	if res.Severity != Critical {
		t.Errorf("severity = %s, want CRITICAL", res.Severity)
	}
	if res.Severity.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", res.Severity.ExitCode())
	}
	if len(res.Details) != 2 {
		t.Errorf("details = %v, want exactly 2 lines", res.Details)
	}
	if api.logoutCalls != 1 {
		t.Errorf("logout called %d times, want exactly 1", api.logoutCalls)
	}
}

// An unrecognized status string must surface as UNKNOWN (exit 3), never as
// a silent OK.
func TestRunHosts_UnrecognizedState(t *testing.T) {
	api := &fakeAPI{
		hosts: []vcenter.HostSummary{
			{Host: "host-1", Name: "esx01", ConnectionState: "CONNECTED", PowerState: "POWERED_ON"},
			{Host: "host-2", Name: "esx02", ConnectionState: "weirdState", PowerState: "POWERED_ON"},
		},
	}

	res := newTestRunner("hosts", api).Run(context.Background())

	if res.Severity != Unknown {
		t.Errorf("severity = %s, want UNKNOWN", res.Severity)
	}
	if res.Severity.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", res.Severity.ExitCode())
	}
}

func TestRun_AuthFailure(t *testing.T) {
	api := &fakeAPI{loginErr: errors.New("HTTP status 401: authentication required")}

	res := newTestRunner("hosts", api).Run(context.Background())

	if res.Severity != Unknown {
		t.Errorf("severity = %s, want UNKNOWN", res.Severity)
	}
	if !strings.Contains(res.Message, "401") {
		t.Errorf("message %q should carry the HTTP status", res.Message)
	}
	if api.logoutCalls != 0 {
		t.Errorf("logout called %d times for a session that never opened", api.logoutCalls)
	}
}

// A failed list call is fatal (UNKNOWN) but the session must still be
// closed exactly once.
func TestRun_FatalListFailure(t *testing.T) {
	api := &fakeAPI{hostsErr: errors.New("HTTP status 503: service unavailable")}

	res := newTestRunner("hosts", api).Run(context.Background())

	if res.Severity != Unknown {
		t.Errorf("severity = %s, want UNKNOWN", res.Severity)
	}
	if api.loginCalls != 1 || api.logoutCalls != 1 {
		t.Errorf("login/logout = %d/%d, want 1/1", api.loginCalls, api.logoutCalls)
	}
}

func TestRunVMs_PowerStates(t *testing.T) {
	api := &fakeAPI{
		vms: []vcenter.VMSummary{
			{VM: "vm-1", Name: "web01", PowerState: "POWERED_ON"},
			{VM: "vm-2", Name: "web02", PowerState: "POWERED_OFF"},
			{VM: "vm-3", Name: "web03", PowerState: "SUSPENDED"},
		},
		vmInfos: map[string]*vcenter.VMInfo{
			"vm-1": {Name: "web01", PowerState: "POWERED_ON"},
			"vm-2": {Name: "web02", PowerState: "POWERED_OFF"},
			"vm-3": {Name: "web03", PowerState: "SUSPENDED"},
		},
		tools: map[string]*vcenter.ToolsInfo{
			"vm-1": {RunState: "RUNNING"},
		},
	}

	res := newTestRunner("vms", api).Run(context.Background())

	if res.Severity != Warning {
		t.Errorf("severity = %s, want WARNING", res.Severity)
	}
	if len(res.Details) != 2 {
		t.Errorf("details = %v, want 2 lines (off and suspended)", res.Details)
	}
	if !strings.Contains(res.Message, "2 of 3 VMs") {
		t.Errorf("message = %q", res.Message)
	}
	if api.logoutCalls != 1 {
		t.Errorf("logout called %d times, want exactly 1", api.logoutCalls)
	}
}

// A single VM's failed detail lookup marks that VM UNKNOWN without
// aborting the run.
func TestRunVMs_PartialFailure(t *testing.T) {
	api := &fakeAPI{
		vms: []vcenter.VMSummary{
			{VM: "vm-1", Name: "web01", PowerState: "POWERED_ON"},
			{VM: "vm-2", Name: "web02", PowerState: "POWERED_ON"},
		},
		vmInfos: map[string]*vcenter.VMInfo{
			"vm-1": {Name: "web01", PowerState: "POWERED_ON"},
		},
		vmErrs: map[string]error{
			"vm-2": errors.New("HTTP status 500: internal server error"),
		},
		tools: map[string]*vcenter.ToolsInfo{
			"vm-1": {RunState: "RUNNING"},
		},
	}

	res := newTestRunner("vms", api).Run(context.Background())

	if res.Severity != Unknown {
		t.Errorf("severity = %s, want UNKNOWN", res.Severity)
	}
	if len(res.Details) != 1 {
		t.Fatalf("details = %v, want 1 line", res.Details)
	}
	if !strings.Contains(res.Details[0], "web02") {
		t.Errorf("detail %q should name the failed VM", res.Details[0])
	}
	if api.logoutCalls != 1 {
		t.Errorf("logout called %d times, want exactly 1", api.logoutCalls)
	}
}

// Platforms without the tools endpoint must not degrade powered-on VMs.
func TestRunVMs_ToolsNotSurfaced(t *testing.T) {
	api := &fakeAPI{
		vms: []vcenter.VMSummary{
			{VM: "vm-1", Name: "web01", PowerState: "POWERED_ON"},
		},
		vmInfos: map[string]*vcenter.VMInfo{
			"vm-1": {Name: "web01", PowerState: "POWERED_ON"},
		},
		// no tools entry: fake returns ErrNotFound
	}

	res := newTestRunner("vms", api).Run(context.Background())

	if res.Severity != OK {
		t.Errorf("severity = %s, want OK", res.Severity)
	}
}

func TestRunVMs_ToolsNotRunning(t *testing.T) {
	api := &fakeAPI{
		vms: []vcenter.VMSummary{
			{VM: "vm-1", Name: "web01", PowerState: "POWERED_ON"},
		},
		vmInfos: map[string]*vcenter.VMInfo{
			"vm-1": {Name: "web01", PowerState: "POWERED_ON"},
		},
		tools: map[string]*vcenter.ToolsInfo{
			"vm-1": {RunState: "NOT_RUNNING"},
		},
	}

	res := newTestRunner("vms", api).Run(context.Background())

	if res.Severity != Warning {
		t.Errorf("severity = %s, want WARNING", res.Severity)
	}
	if len(res.Details) != 1 || !strings.Contains(res.Details[0], "VMware Tools") {
		t.Errorf("details = %v, want one tools line", res.Details)
	}
}

func TestRunDatastores(t *testing.T) {
	api := &fakeAPI{
		stores: []vcenter.DatastoreSummary{
			{Datastore: "ds-1", Name: "ds01", Capacity: 1000, FreeSpace: 500},
			{Datastore: "ds-2", Name: "ds02", Capacity: 1000, FreeSpace: 50},
			{Datastore: "ds-3", Name: "ds03", Capacity: 0, FreeSpace: 0},
		},
	}

	res := newTestRunner("datastores", api).Run(context.Background())

	if res.Severity != Critical {
		t.Errorf("severity = %s, want CRITICAL", res.Severity)
	}
	if len(res.Details) != 2 {
		t.Errorf("details = %v, want 2 lines (over threshold and zero capacity)", res.Details)
	}
	// Perfdata only for datastores with a usable capacity figure.
	if len(res.PerfData) != 2 {
		t.Errorf("perfdata = %v, want 2 entries", res.PerfData)
	}
	if api.logoutCalls != 1 {
		t.Errorf("logout called %d times, want exactly 1", api.logoutCalls)
	}
}

func TestRunDatastores_PartialFailure(t *testing.T) {
	api := &fakeAPI{
		stores: []vcenter.DatastoreSummary{
			{Datastore: "ds-1", Name: "ds01", Capacity: 1000, FreeSpace: 500},
			{Datastore: "ds-2", Name: "ds02", Capacity: 1000, FreeSpace: 500},
		},
		storeErrs: map[string]error{
			"ds-2": errors.New("HTTP status 500: internal server error"),
		},
	}

	res := newTestRunner("datastores", api).Run(context.Background())

	if res.Severity != Unknown {
		t.Errorf("severity = %s, want UNKNOWN", res.Severity)
	}
	if len(res.Details) != 1 || !strings.Contains(res.Details[0], "ds02") {
		t.Errorf("details = %v, want one line naming ds02", res.Details)
	}
}
