package grove

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// GetService
// ---------------------------------------------------------------------------

func TestGetService(t *testing.T) {
	t.Run("singleton returns same instance", func(t *testing.T) {
		c := NewServiceCollection()
		mustRegister(t, c, newTestLogger)
		p := mustBuild(t, c)

		v1, err := p.GetService(typeOf[*testLogger]())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v2, _ := p.GetService(typeOf[*testLogger]())

		if v1 != v2 {
			t.Fatal("singleton should return the same instance")
		}
	})

	t.Run("transient returns different instances", func(t *testing.T) {
		c := NewServiceCollection()
		mustRegister(t, c, newTestLogger, WithLifetime(Transient))
		p := mustBuild(t, c)

		v1, err := p.GetService(typeOf[*testLogger]())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v2, _ := p.GetService(typeOf[*testLogger]())

		if v1 == v2 {
			t.Fatal("transient should return different instances")
		}
	})

	t.Run("transient constructor called each time", func(t *testing.T) {
		callCount := 0
		c := NewServiceCollection()
		mustRegister(t, c, func() *testLogger {
			callCount++
			return &testLogger{}
		}, WithLifetime(Transient))
		p := mustBuild(t, c)

		for range 3 {
			if _, err := p.GetService(typeOf[*testLogger]()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if callCount != 3 {
			t.Fatalf("expected 3 calls, got %d", callCount)
		}
	})

	t.Run("singleton is constructed lazily", func(t *testing.T) {
		callCount := 0
		c := NewServiceCollection()
		mustRegister(t, c, func() *testLogger {
			callCount++
			return &testLogger{Prefix: "app"}
		})
		p := mustBuild(t, c)

		if callCount != 0 {
			t.Fatalf("singleton should not be constructed before first use, called %d times", callCount)
		}
		_, _ = p.GetService(typeOf[*testLogger]())
		_, _ = p.GetService(typeOf[*testLogger]())
		if callCount != 1 {
			t.Fatalf("singleton should be constructed once, called %d times", callCount)
		}
	})

	t.Run("deep dependency chain fully resolved", func(t *testing.T) {
		c := NewServiceCollection()
		mustRegister(t, c, newTestLogger)
		mustRegister(t, c, newTestConfig)
		mustRegister(t, c, newTestDatabase)
		mustRegister(t, c, newTestUserRepo)
		mustRegister(t, c, newTestUserService)
		p := mustBuild(t, c)

		svc, err := GetRequiredService[*testUserService](p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.Repo == nil {
			t.Fatal("UserService.Repo is nil")
		}
		if svc.Repo.DB == nil {
			t.Fatal("UserRepo.DB is nil")
		}
		if svc.Repo.DB.Config.DSN != "postgres://localhost" {
			t.Fatalf("unexpected DSN: %s", svc.Repo.DB.Config.DSN)
		}
		if svc.Logger == nil {
			t.Fatal("UserService.Logger is nil")
		}
	})

	t.Run("singletons share instances across dependents", func(t *testing.T) {
		c := NewServiceCollection()
		mustRegister(t, c, newTestLogger)
		mustRegister(t, c, newTestConfig)
		mustRegister(t, c, newTestDatabase)
		mustRegister(t, c, newTestUserRepo)
		mustRegister(t, c, newTestUserService)
		p := mustBuild(t, c)

		svc, _ := GetRequiredService[*testUserService](p)
		repo, _ := GetRequiredService[*testUserRepo](p)
		logger, _ := GetRequiredService[*testLogger](p)

		if svc.Logger != logger {
			t.Fatal("UserService should share Logger singleton")
		}
		if repo.Logger != logger {
			t.Fatal("UserRepo should share Logger singleton")
		}
		if repo.DB.Logger != logger {
			t.Fatal("Database should share Logger singleton")
		}
	})

	t.Run("transient with singleton dependency shares singleton", func(t *testing.T) {
		c := NewServiceCollection()
		mustRegister(t, c, newTestLogger)
		mustRegister(t, c, newTestOrderService, WithLifetime(Transient))
		p := mustBuild(t, c)

		s1, _ := GetRequiredService[*testOrderService](p)
		s2, _ := GetRequiredService[*testOrderService](p)

		if s1 == s2 {
			t.Fatal("transient should return different instances")
		}
		if s1.Logger != s2.Logger {
			t.Fatal("transient instances should share the singleton logger")
		}
	})

	t.Run("unregistered returns nil", func(t *testing.T) {
		p := mustBuild(t, NewServiceCollection())

		v, err := p.GetService(typeOf[*testLogger]())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != nil {
			t.Fatalf("expected nil, got %v", v)
		}
	})

	t.Run("unregistered required returns ErrServiceNotFound", func(t *testing.T) {
		p := mustBuild(t, NewServiceCollection())

		_, err := p.GetRequiredService(typeOf[*testLogger]())
		if !errors.Is(err, ErrServiceNotFound) {
			t.Fatalf("expected ErrServiceNotFound, got: %v", err)
		}
	})

	t.Run("nil type rejected", func(t *testing.T) {
		p := mustBuild(t, NewServiceCollection())
		if _, err := p.GetService(nil); err == nil {
			t.Fatal("expected error")
		}
	})
}

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

func TestGetServiceGeneric(t *testing.T) {
	c := NewServiceCollection()
	mustRegister(t, c, newTestLogger)
	p := mustBuild(t, c)

	logger, err := GetService[*testLogger](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Prefix != "app" {
		t.Fatalf("unexpected prefix: %s", logger.Prefix)
	}

	cfg, err := GetService[*testConfig](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatal("expected nil for unregistered type")
	}

	if _, err := GetRequiredService[*testConfig](p); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got: %v", err)
	}
}

func TestGetService_Interface(t *testing.T) {
	c := NewServiceCollection()
	mustRegister(t, c, newTestLogger)
	mustRegister(t, c, newTestOrderService, AsType[testService]())
	p := mustBuild(t, c)

	svc, err := GetRequiredService[testService](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Name() != "order" {
		t.Fatalf("expected 'order', got %q", svc.Name())
	}
}

func TestMustGetService(t *testing.T) {
	p := mustBuild(t, NewServiceCollection())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustGetService[*testLogger](p)
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestGetService_Concurrent(t *testing.T) {
	for _, specialize := range []bool{false, true} {
		t.Run(fmt.Sprintf("specialize=%v", specialize), func(t *testing.T) {
			c := NewServiceCollection()
			mustRegister(t, c, newTestLogger)
			mustRegister(t, c, newTestConfig)
			mustRegister(t, c, newTestDatabase)
			mustRegister(t, c, newTestOrderService, WithLifetime(Transient))
			p := mustBuild(t, c, WithSpecialization(specialize))

			const goroutines = 100
			var wg sync.WaitGroup
			loggers := make([]*testLogger, goroutines)
			errs := make(chan error, goroutines*2)

			for i := range goroutines {
				wg.Add(1)
				go func() {
					defer wg.Done()

					logger, err := GetRequiredService[*testLogger](p)
					if err != nil {
						errs <- fmt.Errorf("Logger: %w", err)
						return
					}
					loggers[i] = logger

					svc, err := GetRequiredService[*testOrderService](p)
					if err != nil {
						errs <- fmt.Errorf("OrderService: %w", err)
						return
					}
					if svc.Logger != logger {
						errs <- fmt.Errorf("OrderService.Logger is not the singleton")
					}
				}()
			}

			wg.Wait()
			close(errs)

			for err := range errs {
				t.Errorf("concurrent error: %v", err)
			}
			for i, l := range loggers {
				if l != loggers[0] {
					t.Fatalf("goroutine %d observed a different singleton", i)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Edge cases
// ---------------------------------------------------------------------------

func TestGetService_TransientDependsOnTransient(t *testing.T) {
	c := NewServiceCollection()
	mustRegister(t, c, newTestLogger, WithLifetime(Transient))
	mustRegister(t, c, newTestOrderService, WithLifetime(Transient))
	p := mustBuild(t, c)

	s1, err := GetRequiredService[*testOrderService](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, _ := GetRequiredService[*testOrderService](p)

	if s1 == s2 {
		t.Fatal("expected different OrderService instances")
	}
	if s1.Logger == s2.Logger {
		t.Fatal("expected different Logger instances for transient chain")
	}
}

func TestGetService_ConstructorReturningError(t *testing.T) {
	c := NewServiceCollection()
	mustRegister(t, c, func() *testLogger { return &testLogger{} }, WithLifetime(Transient))
	mustRegister(t, c, func(l *testLogger) (*testOrderService, error) {
		return nil, errors.New("service init failed")
	}, WithLifetime(Transient))
	p := mustBuild(t, c)

	_, err := GetRequiredService[*testOrderService](p)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "service init failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetService_FailedSingletonIsRetried(t *testing.T) {
	attempts := 0
	c := NewServiceCollection()
	mustRegister(t, c, func() (*testConfig, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection failed")
		}
		return &testConfig{DSN: "ok"}, nil
	})
	p := mustBuild(t, c)

	if _, err := GetRequiredService[*testConfig](p); err == nil {
		t.Fatal("expected error on first attempt")
	}
	cfg, err := GetRequiredService[*testConfig](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DSN != "ok" {
		t.Fatalf("unexpected DSN: %s", cfg.DSN)
	}
}

func TestGetService_ZeroArgConstructor(t *testing.T) {
	c := NewServiceCollection()
	mustRegister(t, c, func() int { return 42 })
	p := mustBuild(t, c)

	val, err := GetRequiredService[int](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Fatalf("expected 42, got %d", val)
	}
}

func TestGetService_ValueType(t *testing.T) {
	type settings struct {
		Debug bool
		Port  int
	}

	c := NewServiceCollection()
	mustRegister(t, c, func() settings {
		return settings{Debug: true, Port: 8080}
	})
	p := mustBuild(t, c)

	s, err := GetRequiredService[settings](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Debug || s.Port != 8080 {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestGetService_ImplicitZeroConstructor(t *testing.T) {
	c := NewServiceCollection()
	if err := AddTyped[*testConfig, *testConfig](c, Singleton); err != nil {
		t.Fatalf("AddTyped: %v", err)
	}
	p := mustBuild(t, c)

	cfg, err := GetRequiredService[*testConfig](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DSN != "" {
		t.Fatalf("expected zero value, got %+v", cfg)
	}
}

func TestGetService_InstancesAndFactories(t *testing.T) {
	c := NewServiceCollection()
	logger := &testLogger{Prefix: "given"}
	if err := AddValue(c, logger); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	calls := 0
	err := AddFactoryFor[testService](c, Scoped, func(sp ServiceProvider) (*testOrderService, error) {
		calls++
		l, err := GetRequiredService[*testLogger](sp)
		if err != nil {
			return nil, err
		}
		return &testOrderService{Logger: l}, nil
	})
	if err != nil {
		t.Fatalf("AddFactoryFor: %v", err)
	}
	p := mustBuild(t, c)
	scope := mustScope(t, p)

	got, err := GetRequiredService[*testLogger](p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != logger {
		t.Fatal("expected the registered instance")
	}

	s1, err := GetRequiredService[testService](scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, _ := GetRequiredService[testService](scope)
	if s1 != s2 || calls != 1 {
		t.Fatalf("scoped factory should run once per scope, ran %d times", calls)
	}
	if s1.(*testOrderService).Logger != logger {
		t.Fatal("factory should receive the registered logger")
	}
}
