// Package concurrency sizes worker pools from the CPU budget of the process.
package concurrency

import (
	"os"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// SetMaxProcs sets GOMAXPROCS to the container CPU quota, which matters when
// running under Kubernetes CPU limits. It returns a function restoring the
// previous value.
func SetMaxProcs(logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	undo, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf))
	if err != nil {
		logger.Warn("Failed to set maxprocs", zap.Error(err))
		return func() {}
	}
	logger.Debug("Concurrency initialized", zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)))
	return undo
}

// EffectiveCPUs returns the number of CPUs the scheduler uses.
func EffectiveCPUs() int {
	return runtime.GOMAXPROCS(0)
}

// IsKubernetes reports whether the process runs in a Kubernetes pod.
func IsKubernetes() bool {
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// DefaultParallelism returns how many inputs to process at once: twice the
// effective CPUs inside Kubernetes, four times elsewhere.
func DefaultParallelism() int {
	multiplier := 4
	if IsKubernetes() {
		multiplier = 2
	}
	return max(1, EffectiveCPUs()*multiplier)
}
