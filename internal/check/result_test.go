package check

import (
	"testing"

	nagios "github.com/atc0005/go-nagios"
)

func TestResultString(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name: "OK without perfdata",
			result: Result{
				Severity: OK,
				Message:  "All 5 hosts are in normal state",
			},
			want: "OK - All 5 hosts are in normal state",
		},
		{
			name: "OK with perfdata",
			result: Result{
				Severity: OK,
				Message:  "All 2 hosts are in normal state",
				PerfData: []nagios.PerformanceData{
					{Label: "power_on", Value: "2", Min: "0", Max: "2"},
					{Label: "conn_connected", Value: "2", Min: "0", Max: "2"},
				},
			},
			want: "OK - All 2 hosts are in normal state | 'power_on'=2;;;0;2 'conn_connected'=2;;;0;2",
		},
		{
			name: "CRITICAL with detail lines",
			result: Result{
				Severity: Critical,
				Message:  "2 of 3 hosts are not in normal state",
				Details: []string{
					"esx02: connection_state DISCONNECTED, power_state POWERED_ON",
					"esx03: connection_state NOT_RESPONDING, power_state POWERED_ON",
				},
			},
			want: "CRITICAL - 2 of 3 hosts are not in normal state\n" +
				"esx02: connection_state DISCONNECTED, power_state POWERED_ON\n" +
				"esx03: connection_state NOT_RESPONDING, power_state POWERED_ON",
		},
		{
			name: "WARNING with percent perfdata",
			result: Result{
				Severity: Warning,
				Message:  "1 of 1 datastores are not in normal state",
				Details:  []string{"ds01: 85.00% used (warn 80%, crit 90%)"},
				PerfData: []nagios.PerformanceData{
					{Label: "ds01", Value: "85.00", UnitOfMeasurement: "%", Warn: "80", Crit: "90", Min: "0", Max: "100"},
				},
			},
			want: "WARNING - 1 of 1 datastores are not in normal state | 'ds01'=85.00%;80;90;0;100\n" +
				"ds01: 85.00% used (warn 80%, crit 90%)",
		},
		{
			name:   "UNKNOWN fatal",
			result: Fatal("Error during API auth request: HTTP status 401"),
			want:   "UNKNOWN - Error during API auth request: HTTP status 401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("\ngot:  %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestApplyToPlugin(t *testing.T) {
	tests := []struct {
		name       string
		result     Result
		wantExit   int
		wantOutput string
	}{
		{
			name:       "OK",
			result:     Result{Severity: OK, Message: "All 3 VMs are in normal state (On: 3, Off: 0, Suspended: 0)"},
			wantExit:   nagios.StateOKExitCode,
			wantOutput: "OK - All 3 VMs are in normal state (On: 3, Off: 0, Suspended: 0)",
		},
		{
			name:       "WARNING",
			result:     Result{Severity: Warning, Message: "1 of 3 hosts are not in normal state"},
			wantExit:   nagios.StateWARNINGExitCode,
			wantOutput: "WARNING - 1 of 3 hosts are not in normal state",
		},
		{
			name: "CRITICAL with details",
			result: Result{
				Severity: Critical,
				Message:  "1 of 3 hosts are not in normal state",
				Details:  []string{"esx03: connection_state NOT_RESPONDING, power_state POWERED_ON"},
			},
			wantExit:   nagios.StateCRITICALExitCode,
			wantOutput: "CRITICAL - 1 of 3 hosts are not in normal state",
		},
		{
			name:       "UNKNOWN",
			result:     Fatal("connection error: dial tcp: i/o timeout"),
			wantExit:   nagios.StateUNKNOWNExitCode,
			wantOutput: "UNKNOWN - connection error: dial tcp: i/o timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := nagios.NewPlugin()
			tt.result.ApplyToPlugin(p)

			if p.ExitStatusCode != tt.wantExit {
				t.Errorf("ExitStatusCode = %d, want %d", p.ExitStatusCode, tt.wantExit)
			}
			if p.ServiceOutput != tt.wantOutput {
				t.Errorf("ServiceOutput = %q, want %q", p.ServiceOutput, tt.wantOutput)
			}
			if len(tt.result.Details) > 0 && p.LongServiceOutput == "" {
				t.Error("LongServiceOutput should carry the detail lines")
			}
		})
	}
}
