package check

import nagios "github.com/atc0005/go-nagios"

// Severity is a monitoring plugin state, ordered by exit code.
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

// String returns the Nagios state label.
func (s Severity) String() string {
	switch s {
	case OK:
		return nagios.StateOKLabel
	case Warning:
		return nagios.StateWARNINGLabel
	case Critical:
		return nagios.StateCRITICALLabel
	default:
		return nagios.StateUNKNOWNLabel
	}
}

// ExitCode returns the plugin exit code for this severity.
func (s Severity) ExitCode() int {
	switch s {
	case OK:
		return nagios.StateOKExitCode
	case Warning:
		return nagios.StateWARNINGExitCode
	case Critical:
		return nagios.StateCRITICALExitCode
	default:
		return nagios.StateUNKNOWNExitCode
	}
}

// mergeRank orders severities for worst-wins aggregation. CRITICAL always
// dominates; UNKNOWN outranks WARNING so an unrecognized state is never
// reported better than a recognized degraded one.
var mergeRank = map[Severity]int{
	OK:       0,
	Warning:  1,
	Unknown:  2,
	Critical: 3,
}

// Merge returns the worse of two severities.
func Merge(a, b Severity) Severity {
	if mergeRank[b] > mergeRank[a] {
		return b
	}
	return a
}
