package logging

import "go.uber.org/zap"

// New builds a human-readable logger for local/dev environments and a JSON
// production logger everywhere else.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "", "local", "dev", "test":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
