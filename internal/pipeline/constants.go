package pipeline

// Failure policies for view errors during rendering.
const (
	// PolicyContinue records a failed view and renders the rest.
	PolicyContinue Policy = "continue"

	// PolicyStop aborts the run on the first failed view.
	PolicyStop Policy = "stop"
)

// Stage names used in log records.
const (
	stageLoad      = "load"
	stageAggregate = "aggregate"
	stageRender    = "render"
	stageExport    = "export"
)

// maxErrorLen caps error text stored in the run ledger.
const maxErrorLen = 2000
