package grove

import metrics "github.com/rcrowley/go-metrics"

// Metric names recorded in the provider's registry.
const (
	MetricPlansBuilt       = "grove.plans.built"
	MetricPlansFailed      = "grove.plans.failed"
	MetricPlansSpecialized = "grove.plans.specialized"
	MetricPlanBuildTime    = "grove.plans.build"
	MetricResolutions      = "grove.resolutions"
	MetricScopesCreated    = "grove.scopes.created"
	MetricScopesDisposed   = "grove.scopes.disposed"
)

type engineStats struct {
	registry metrics.Registry

	plansBuilt       metrics.Counter
	plansFailed      metrics.Counter
	plansSpecialized metrics.Counter
	buildTime        metrics.Timer
	resolutions      metrics.Counter
	scopesCreated    metrics.Counter
	scopesDisposed   metrics.Counter
}

func newEngineStats(r metrics.Registry) *engineStats {
	if r == nil {
		r = metrics.NewRegistry()
	}
	return &engineStats{
		registry:         r,
		plansBuilt:       metrics.GetOrRegisterCounter(MetricPlansBuilt, r),
		plansFailed:      metrics.GetOrRegisterCounter(MetricPlansFailed, r),
		plansSpecialized: metrics.GetOrRegisterCounter(MetricPlansSpecialized, r),
		buildTime:        metrics.GetOrRegisterTimer(MetricPlanBuildTime, r),
		resolutions:      metrics.GetOrRegisterCounter(MetricResolutions, r),
		scopesCreated:    metrics.GetOrRegisterCounter(MetricScopesCreated, r),
		scopesDisposed:   metrics.GetOrRegisterCounter(MetricScopesDisposed, r),
	}
}
