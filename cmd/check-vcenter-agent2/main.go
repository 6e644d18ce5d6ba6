package main

import (
	"fmt"
	"os"

	"golang.zabbix.com/sdk/plugin"
	"golang.zabbix.com/sdk/plugin/container"

	"github.com/m-erhardt/check-vcenter/internal/agent2"
)

func main() {
	p := agent2.NewPlugin()

	err := plugin.RegisterMetrics(
		p, "VCenter",
		"vcenter.vms", "Returns the latest VM check result as JSON.",
		"vcenter.hosts", "Returns the latest host check result as JSON.",
		"vcenter.datastores", "Returns the latest datastore check result as JSON.",
		"vcenter.severity", "Returns the latest exit code for a mode.",
		"vcenter.age", "Returns the age of the cached result for a mode in seconds.",
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to register metrics: %s\n", err)
		os.Exit(1)
	}

	h, err := container.NewHandler("VCenter")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create handler: %s\n", err)
		os.Exit(1)
	}

	if err := h.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "plugin execution failed: %s\n", err)
		os.Exit(1)
	}
}
