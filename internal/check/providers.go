package check

import (
	"go.uber.org/fx"

	"github.com/m-erhardt/check-vcenter/internal/vcenter"
)

// Module provides the check runner and its vCenter client for fx injection.
var Module = fx.Module("check",
	fx.Provide(
		func(c *vcenter.Client) API { return c },
		NewRunner,
	),
	vcenter.Module,
)
