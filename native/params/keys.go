package params

const (
	// ParamsKeyGlobal stores the controller's global risk parameters.
	ParamsKeyGlobal = "controller/global"
	// ParamsKeyUpdates stores the per-parameter last-update timestamps.
	ParamsKeyUpdates = "controller/updates"
)
