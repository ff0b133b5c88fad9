package grove

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Shared test types and constructors used across test files.

// mustRegister calls t.Fatal if registration fails.
func mustRegister(t testing.TB, c *ServiceCollection, constructor any, opts ...Option) {
	t.Helper()
	if err := c.Register(constructor, opts...); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

// mustBuild calls t.Fatal if the provider cannot be built. Specialization is
// off unless opts turn it on, so plans stay interpreted and deterministic.
func mustBuild(t testing.TB, c *ServiceCollection, opts ...ProviderOption) *Provider {
	t.Helper()
	opts = append([]ProviderOption{WithSpecialization(false), WithLogger(quietLogger())}, opts...)
	p, err := NewProvider(c, opts...)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

// mustScope calls t.Fatal if the scope cannot be created.
func mustScope(t testing.TB, p *Provider) *Provider {
	t.Helper()
	s, err := p.CreateScope()
	if err != nil {
		t.Fatalf("CreateScope: %v", err)
	}
	return s
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func typeOf[T any]() reflect.Type { return reflect.TypeFor[T]() }

type testLogger struct{ Prefix string }
type testConfig struct{ DSN string }

type testDatabase struct {
	Config *testConfig
	Logger *testLogger
}

type testUserRepo struct {
	DB     *testDatabase
	Logger *testLogger
}

type testService interface {
	Name() string
}

type testUserService struct {
	Repo   *testUserRepo
	Logger *testLogger
}

func (s *testUserService) Name() string { return "user" }

type testOrderService struct{ Logger *testLogger }

func (s *testOrderService) Name() string { return "order" }

type testAuditService struct{}

func (s *testAuditService) Name() string { return "audit" }

type testCircA struct{ B *testCircB }
type testCircB struct{ C *testCircC }
type testCircC struct{ A *testCircA }

func newTestLogger() *testLogger           { return &testLogger{Prefix: "app"} }
func newTestConfig() *testConfig           { return &testConfig{DSN: "postgres://localhost"} }
func newTestCircA(b *testCircB) *testCircA { return &testCircA{B: b} }
func newTestCircB(c *testCircC) *testCircB { return &testCircB{C: c} }
func newTestCircC(a *testCircA) *testCircC { return &testCircC{A: a} }

func newTestDatabase(cfg *testConfig, log *testLogger) *testDatabase {
	return &testDatabase{Config: cfg, Logger: log}
}

func newTestUserRepo(db *testDatabase, log *testLogger) *testUserRepo {
	return &testUserRepo{DB: db, Logger: log}
}

func newTestUserService(repo *testUserRepo, log *testLogger) *testUserService {
	return &testUserService{Repo: repo, Logger: log}
}

func newTestOrderService(log *testLogger) *testOrderService {
	return &testOrderService{Logger: log}
}

// closeLog records close order across instances.
type closeLog struct {
	mu    sync.Mutex
	order []string
}

func (l *closeLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *closeLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// testClosable implements io.Closer for disposal tests.
type testClosable struct {
	Name   string
	Closed int
	Log    *closeLog
}

func (c *testClosable) Close() error {
	c.Closed++
	if c.Log != nil {
		c.Log.add(c.Name)
	}
	return nil
}

// testFailCloser implements io.Closer but returns an error.
type testFailCloser struct{}

func (f *testFailCloser) Close() error {
	return errors.New("close failed")
}
