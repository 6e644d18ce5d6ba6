package vcenter

import "go.uber.org/fx"

// Module provides the vCenter API client for fx injection.
var Module = fx.Module("vcenter",
	fx.Provide(NewClient),
)
