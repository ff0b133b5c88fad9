package grove

import (
	"reflect"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/twitter/groupcache/singleflight"

	"github.com/ARTM2000/grove/internal/syncmap"
)

// specializeAfter is the invocation count at which a plan is compiled.
const specializeAfter = 2

// plan is the cached resolution plan for one requested service type.
type plan struct {
	id          uint64
	serviceType reflect.Type
	// callSite is nil when the type is not registered.
	callSite CallSite
	calls    atomic.Int64
}

// accessor is the plan cache entry: a plan and the executor currently
// installed for it.
type accessor struct {
	plan        *plan
	invoke      accessorFunc
	specialized bool
}

// engine is shared by a root provider and all of its scopes.
type engine struct {
	builder    *planBuilder
	validator  *validator
	specialize bool

	accessors syncmap.Map[reflect.Type, *accessor]
	flight    singleflight.Group
	nextID    atomic.Uint64

	interp   interpreter
	compiler specializer
	log      logrus.FieldLogger
	stats    *engineStats
}

func newEngine(table *serviceTable, opts providerOptions) *engine {
	e := &engine{
		builder:    &planBuilder{table: table, introspector: opts.introspector},
		specialize: opts.specialize,
		log:        opts.logger,
		stats:      newEngineStats(opts.metrics),
	}
	if opts.validateScopes {
		e.validator = &validator{}
	}
	return e
}

// accessor returns the cached accessor for t, building its plan on a miss.
func (e *engine) accessor(t reflect.Type) (*accessor, error) {
	return e.accessors.GetOrAdd(t, e.createAccessor)
}

func (e *engine) createAccessor(t reflect.Type) (*accessor, error) {
	start := time.Now()
	cs, err := e.builder.build(t)
	e.stats.buildTime.UpdateSince(start)
	if err != nil {
		e.stats.plansFailed.Inc(1)
		return nil, err
	}

	if cs != nil && e.validator != nil {
		if err := e.validator.validatePlan(t, cs); err != nil {
			e.stats.plansFailed.Inc(1)
			return nil, err
		}
	}

	pl := &plan{id: e.nextID.Add(1), serviceType: t, callSite: cs}
	e.stats.plansBuilt.Inc(1)
	e.log.WithField("service", t.String()).WithField("registered", cs != nil).Debug("plan built")
	return e.interpreted(pl), nil
}

// interpreted returns the initial accessor of pl. The call that brings the
// plan's invocation count to specializeAfter schedules compilation.
func (e *engine) interpreted(pl *plan) *accessor {
	if pl.callSite == nil {
		return &accessor{plan: pl, invoke: func(*Provider) (any, error) { return nil, nil }}
	}

	return &accessor{plan: pl, invoke: func(p *Provider) (any, error) {
		n := pl.calls.Add(1)
		if e.specialize && n == specializeAfter {
			go e.specializePlan(pl)
		}
		return e.interp.resolve(pl.callSite, p)
	}}
}

func (e *engine) specializePlan(pl *plan) {
	key := strconv.FormatUint(pl.id, 10)
	_, _ = e.flight.Do(key, func() (interface{}, error) {
		compiled := e.compiler.compile(pl.callSite)
		invoke := func(p *Provider) (any, error) {
			pl.calls.Add(1)
			return compiled(p)
		}
		e.stats.plansSpecialized.Inc(1)
		e.accessors.Set(pl.serviceType, &accessor{plan: pl, invoke: invoke, specialized: true})
		e.log.WithField("service", pl.serviceType.String()).Debug("plan specialized")
		return nil, nil
	})
}

// resolve produces the instance of t for provider p.
func (e *engine) resolve(t reflect.Type, p *Provider) (any, error) {
	acc, err := e.accessor(t)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", t)
	}
	if e.validator != nil {
		if err := e.validator.validateResolution(t, p.IsRoot()); err != nil {
			return nil, err
		}
	}

	e.stats.resolutions.Inc(1)
	return acc.invoke(p)
}

// PlanInfo describes one cached resolution plan.
type PlanInfo struct {
	ServiceType string `json:"service_type" yaml:"service_type"`
	Registered  bool   `json:"registered" yaml:"registered"`
	Specialized bool   `json:"specialized" yaml:"specialized"`
	Calls       int64  `json:"calls" yaml:"calls"`
	Plan        string `json:"plan,omitempty" yaml:"plan,omitempty"`
}

func (e *engine) plans() []PlanInfo {
	entries := e.accessors.Entries()
	out := make([]PlanInfo, 0, len(entries))
	for _, entry := range entries {
		acc := entry.Value
		info := PlanInfo{
			ServiceType: entry.Key.String(),
			Registered:  acc.plan.callSite != nil,
			Specialized: acc.specialized,
			Calls:       acc.plan.calls.Load(),
		}
		if acc.plan.callSite != nil {
			info.Plan = FormatPlan(acc.plan.callSite)
		}
		out = append(out, info)
	}
	return out
}
