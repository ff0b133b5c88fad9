package grove

import (
	"context"
	stderrors "errors"
	"io"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/ARTM2000/grove/internal/syncmap"
)

// ServiceProvider resolves service instances by type. GetService returns
// nil, nil when nothing is registered for t.
type ServiceProvider interface {
	GetService(t reflect.Type) (any, error)
}

// ScopeFactory creates scopes. It is registered automatically and can be
// injected into services that need to open their own scopes.
type ScopeFactory interface {
	CreateScope() (*Provider, error)
}

var (
	serviceProviderType = reflect.TypeFor[ServiceProvider]()
	scopeFactoryType    = reflect.TypeFor[ScopeFactory]()
)

// Provider is a root service provider or a scope created from one. Scoped
// services are cached per provider; singletons are cached in the root and
// shared by all of its scopes. A Provider is safe for concurrent use.
//
// ServiceProvider and ScopeFactory are always resolvable: the former yields
// the provider performing the resolution.
type Provider struct {
	id     string
	engine *engine
	root   *Provider
	log    logrus.FieldLogger

	resolved syncmap.Map[resolutionKey, any]

	// mu guards disposables and orders cache stores (read lock) against
	// disposal (write lock).
	mu          sync.RWMutex
	disposables []io.Closer
	disposed    atomic.Bool
}

// NewProvider builds the root provider for services. The collection is
// snapshotted; later changes to it are not observed.
func NewProvider(services *ServiceCollection, opts ...ProviderOption) (*Provider, error) {
	if services == nil {
		services = NewServiceCollection()
	}

	o := defaultProviderOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.introspector == nil {
		o.introspector = services.Constructors()
	}

	table := newServiceTable(services.Descriptors())
	p := &Provider{id: newID()}
	p.root = p
	p.engine = newEngine(table, o)
	p.log = o.logger.WithField("scope", p.id)

	p.log.WithField("services", services.Len()).Debug("provider built")
	return p, nil
}

var idFallback atomic.Uint64

func newID() string {
	u, err := uuid.NewV4()
	if err != nil {
		return "scope-" + strconv.FormatUint(idFallback.Add(1), 10)
	}
	return u.String()
}

// ID returns the provider's unique identifier.
func (p *Provider) ID() string { return p.id }

// IsRoot reports whether p is the root provider.
func (p *Provider) IsRoot() bool { return p.root == p }

// Root returns the root provider.
func (p *Provider) Root() *Provider { return p.root }

// Metrics returns the registry the engine records its metrics in.
func (p *Provider) Metrics() metrics.Registry { return p.engine.stats.registry }

// Plans returns the resolution plans cached so far, in the order they were
// first requested.
func (p *Provider) Plans() []PlanInfo { return p.engine.plans() }

// GetService resolves t. It returns nil, nil when t is not registered and
// is not a slice type. An unregistered slice type resolves to an empty
// slice.
func (p *Provider) GetService(t reflect.Type) (any, error) {
	if t == nil {
		return nil, errors.New("service type is nil")
	}
	if p.disposed.Load() {
		return nil, errors.Wrapf(ErrUseAfterDispose, "resolving %s", t)
	}
	return p.engine.resolve(t, p)
}

// GetRequiredService is GetService, failing with ErrServiceNotFound when
// nothing is registered for t.
func (p *Provider) GetRequiredService(t reflect.Type) (any, error) {
	v, err := p.GetService(t)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.Wrapf(ErrServiceNotFound, "%s", t)
	}
	return v, nil
}

// CreateScope creates a scope sharing p's root. Scopes do not nest: a scope
// created from another scope is a sibling, not a child. It fails once p or
// its root is disposed.
func (p *Provider) CreateScope() (*Provider, error) {
	if p.disposed.Load() || p.root.disposed.Load() {
		return nil, errors.Wrap(ErrUseAfterDispose, "creating scope")
	}

	s := &Provider{id: newID(), engine: p.engine, root: p.root}
	s.log = p.engine.log.WithField("scope", s.id)
	p.engine.stats.scopesCreated.Inc(1)
	s.log.Debug("scope created")
	return s, nil
}

// Dispose closes every io.Closer the provider owns: transient instances it
// resolved, then its cached scoped (and, for the root, singleton)
// instances, each group in reverse creation order. Errors are joined.
// Dispose is idempotent.
func (p *Provider) Dispose() error {
	return p.Shutdown(context.Background())
}

// Close aliases Dispose so a provider is itself an io.Closer.
func (p *Provider) Close() error {
	return p.Dispose()
}

// Shutdown is Dispose bounded by ctx. Once ctx is done the remaining
// closers are skipped and the context error is included in the result.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed.Swap(true) {
		p.mu.Unlock()
		return nil
	}
	transients := p.disposables
	p.disposables = nil
	entries := p.resolved.Entries()
	p.resolved.Clear()
	p.mu.Unlock()

	closers := make([]io.Closer, 0, len(transients)+len(entries))
	for i := len(transients) - 1; i >= 0; i-- {
		closers = append(closers, transients[i])
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if c, ok := entries[i].Value.(io.Closer); ok && !p.isSelf(c) {
			closers = append(closers, c)
		}
	}

	var errs []error
	for _, c := range closers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.Close(); err != nil {
			p.log.WithError(err).Warnf("closing %T", c)
			errs = append(errs, err)
		}
	}

	if !p.IsRoot() {
		p.engine.stats.scopesDisposed.Inc(1)
	}
	p.log.WithField("closed", len(closers)).Debug("provider disposed")
	return stderrors.Join(errs...)
}

func (p *Provider) isSelf(v any) bool {
	other, ok := v.(*Provider)
	return ok && other == p
}

// captureDisposable tracks v for disposal when it is an io.Closer other than
// p itself.
func (p *Provider) captureDisposable(v any) (any, error) {
	c, ok := v.(io.Closer)
	if !ok || p.isSelf(v) {
		return v, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed.Load() {
		return nil, errors.Wrapf(ErrUseAfterDispose, "tracking %T", v)
	}
	p.disposables = append(p.disposables, c)
	return v, nil
}

// cached returns the instance stored under key in p, creating it with build
// on a miss. build runs without locks; the result is stored only while p is
// not disposed, so every stored instance is seen by Shutdown. An instance
// built after disposal started is closed here instead.
func (p *Provider) cached(key resolutionKey, build func() (any, error)) (any, error) {
	if p.disposed.Load() {
		return nil, ErrUseAfterDispose
	}
	if v, ok := p.resolved.TryGet(key); ok {
		return v, nil
	}

	v, err := build()
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	if p.disposed.Load() {
		p.mu.RUnlock()
		if c, ok := v.(io.Closer); ok && !p.isSelf(v) {
			if err := c.Close(); err != nil {
				p.log.WithError(err).Warnf("closing %T built during disposal", v)
			}
		}
		return nil, errors.Wrapf(ErrUseAfterDispose, "caching %T", v)
	}
	actual, err := p.resolved.GetOrAdd(key, func(resolutionKey) (any, error) { return v, nil })
	p.mu.RUnlock()
	return actual, err
}

// scopeFactory returns the ScopeFactory bound to p.
func (p *Provider) scopeFactory() ScopeFactory {
	return providerScopeFactory{provider: p}
}

type providerScopeFactory struct {
	provider *Provider
}

func (f providerScopeFactory) CreateScope() (*Provider, error) {
	return f.provider.CreateScope()
}
