package security

import "civitas/internal/module"

// Handlers returns one instance of every security handler.
func Handlers() []module.Handler {
	return []module.Handler{
		NewPoliceReportHandler(),
		NewAnonymousTipHandler(),
		NewPatrolRequestHandler(),
		NewCameraRequestHandler(),
	}
}

// Register adds every security handler to r.
func Register(r *module.Registry) error {
	for _, h := range Handlers() {
		if err := r.Register(h); err != nil {
			return err
		}
	}
	return nil
}
