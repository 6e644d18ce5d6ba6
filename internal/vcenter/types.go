package vcenter

// Power states reported by the vSphere Automation API.
const (
	PowerStateOn        = "POWERED_ON"
	PowerStateOff       = "POWERED_OFF"
	PowerStateSuspended = "SUSPENDED"
	PowerStateStandby   = "STANDBY"
)

// Connection states reported for ESXi hosts.
const (
	ConnectionStateConnected     = "CONNECTED"
	ConnectionStateDisconnected  = "DISCONNECTED"
	ConnectionStateNotResponding = "NOT_RESPONDING"
)

// VMware Tools run states.
const (
	ToolsRunning    = "RUNNING"
	ToolsNotRunning = "NOT_RUNNING"
)

// VMSummary is one element of the GET /api/vcenter/vm list response.
type VMSummary struct {
	VM         string `json:"vm"`
	Name       string `json:"name"`
	PowerState string `json:"power_state"`
	CPUCount   int    `json:"cpu_count,omitempty"`
	MemoryMiB  int64  `json:"memory_size_MiB,omitempty"`
}

// VMInfo is the GET /api/vcenter/vm/{vm} detail response, reduced to the
// fields the plugin evaluates.
type VMInfo struct {
	Name       string `json:"name"`
	PowerState string `json:"power_state"`
}

// ToolsInfo is the GET /api/vcenter/vm/{vm}/tools response.
type ToolsInfo struct {
	RunState      string `json:"run_state"`
	VersionStatus string `json:"version_status,omitempty"`
}

// HostSummary is one element of the GET /api/vcenter/host list response.
type HostSummary struct {
	Host            string `json:"host"`
	Name            string `json:"name"`
	ConnectionState string `json:"connection_state"`
	PowerState      string `json:"power_state"`
}

// DatastoreSummary is one element of the GET /api/vcenter/datastore list
// response.
type DatastoreSummary struct {
	Datastore string `json:"datastore"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Capacity  int64  `json:"capacity"`
	FreeSpace int64  `json:"free_space"`
}

// DatastoreInfo is the GET /api/vcenter/datastore/{datastore} detail
// response.
type DatastoreInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Capacity  int64  `json:"capacity"`
	FreeSpace int64  `json:"free_space"`
}

// APIError is the JSON error document returned by the Automation API for
// non-2xx responses.
type APIError struct {
	ErrorType string         `json:"error_type,omitempty"`
	Messages  []ErrorMessage `json:"messages,omitempty"`
}

// ErrorMessage is one localizable message inside an APIError.
type ErrorMessage struct {
	ID             string `json:"id,omitempty"`
	DefaultMessage string `json:"default_message,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Messages) > 0 && e.Messages[0].DefaultMessage != "" {
		return e.Messages[0].DefaultMessage
	}
	if e.ErrorType != "" {
		return e.ErrorType
	}
	return "unknown API error"
}
