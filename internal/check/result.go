package check

import (
	"fmt"
	"strings"

	nagios "github.com/atc0005/go-nagios"
)

// Result is the terminal artifact of one check run: the aggregated
// severity, the summary line, per-object detail lines and perfdata.
type Result struct {
	Severity Severity
	Message  string
	Details  []string
	PerfData []nagios.PerformanceData
}

// String renders the full plugin output block: first the summary line,
// with perfdata after the pipe, then one detail line per non-OK object.
func (r Result) String() string {
	var sb strings.Builder
	sb.WriteString(r.Severity.String())
	sb.WriteString(" - ")
	sb.WriteString(r.Message)

	if len(r.PerfData) > 0 {
		sb.WriteString(" |")
		for _, pd := range r.PerfData {
			sb.WriteString(" ")
			sb.WriteString(perfDatumString(pd))
		}
	}

	for _, d := range r.Details {
		sb.WriteString("\n")
		sb.WriteString(d)
	}
	return sb.String()
}

func perfDatumString(pd nagios.PerformanceData) string {
	return fmt.Sprintf("'%s'=%s%s;%s;%s;%s;%s",
		pd.Label, pd.Value, pd.UnitOfMeasurement, pd.Warn, pd.Crit, pd.Min, pd.Max)
}

// ApplyToPlugin transfers this result onto a go-nagios plugin so its
// ReturnCheckResults prints the output block and exits with the right code.
func (r Result) ApplyToPlugin(p *nagios.Plugin) {
	p.ExitStatusCode = r.Severity.ExitCode()
	p.ServiceOutput = fmt.Sprintf("%s - %s", r.Severity.String(), r.Message)
	p.LongServiceOutput = strings.Join(r.Details, "\n")
	if len(r.PerfData) > 0 {
		_ = p.AddPerfData(false, r.PerfData...)
	}
}

// Fatal builds an UNKNOWN result for whole-run failures (auth errors,
// failed list calls), keeping the one-line output guarantee.
func Fatal(format string, args ...interface{}) Result {
	return Result{
		Severity: Unknown,
		Message:  fmt.Sprintf(format, args...),
	}
}
