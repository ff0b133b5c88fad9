package grove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportJob struct {
	Name   string
	Logger *testLogger
	Config *testConfig
}

func activatorProvider(t *testing.T) *Provider {
	t.Helper()
	c := NewServiceCollection()
	mustRegister(t, c, newTestLogger)
	_, err := c.Constructors().Register(func(name string, l *testLogger, cfg *testConfig) *reportJob {
		return &reportJob{Name: name, Logger: l, Config: cfg}
	}, WithDefault(2, &testConfig{DSN: "fallback"}))
	require.NoError(t, err)
	return mustBuild(t, c)
}

func TestCreateInstance(t *testing.T) {
	p := activatorProvider(t)

	t.Run("mixes arguments, services and defaults", func(t *testing.T) {
		job, err := CreateInstanceOf[*reportJob](p, "nightly")
		require.NoError(t, err)
		assert.Equal(t, "nightly", job.Name)
		assert.NotNil(t, job.Logger)
		assert.Equal(t, "fallback", job.Config.DSN)
	})

	t.Run("explicit argument overrides the service", func(t *testing.T) {
		own := &testLogger{Prefix: "own"}
		job, err := CreateInstanceOf[*reportJob](p, own, "weekly")
		require.NoError(t, err)
		assert.Same(t, own, job.Logger)
		assert.Equal(t, "weekly", job.Name)
	})

	t.Run("unmatched argument", func(t *testing.T) {
		_, err := CreateInstanceOf[*reportJob](p, 42)
		require.ErrorIs(t, err, ErrNoPublicConstructor)
	})

	t.Run("missing service without default", func(t *testing.T) {
		_, err := CreateInstanceOf[*testDatabase](p)
		require.NoError(t, err, "implicit constructor has no parameters")

		c := NewServiceCollection()
		_, err = c.Constructors().Register(newTestDatabase)
		require.NoError(t, err)
		_, err = CreateInstanceOf[*testDatabase](mustBuild(t, c))
		require.ErrorIs(t, err, ErrUnresolvableDependency)
	})

	t.Run("first constructor wins a tie", func(t *testing.T) {
		c := NewServiceCollection()
		mustRegister(t, c, newTestLogger)
		for _, fn := range []any{
			func(l *testLogger) *reportJob { return &reportJob{Name: "with logger", Logger: l} },
			func() *reportJob { return &reportJob{Name: "bare"} },
		} {
			_, err := c.Constructors().Register(fn)
			require.NoError(t, err)
		}
		p := mustBuild(t, c)

		job, err := CreateInstanceOf[*reportJob](p)
		require.NoError(t, err)
		assert.Equal(t, "with logger", job.Name)
		registered, err := GetRequiredService[*testLogger](p)
		require.NoError(t, err)
		assert.Same(t, registered, job.Logger)
	})

	t.Run("longest in-order run of arguments wins", func(t *testing.T) {
		c := NewServiceCollection()
		for _, fn := range []any{
			func(cfg *testConfig, name string) *reportJob { return &reportJob{Name: "config first " + name, Config: cfg} },
			func(name string, cfg *testConfig) *reportJob { return &reportJob{Name: "name first " + name, Config: cfg} },
		} {
			_, err := c.Constructors().Register(fn)
			require.NoError(t, err)
		}
		cfg := &testConfig{DSN: "given"}

		job, err := CreateInstanceOf[*reportJob](mustBuild(t, c), "daily", cfg)
		require.NoError(t, err)
		assert.Equal(t, "name first daily", job.Name)
		assert.Same(t, cfg, job.Config)
	})

	t.Run("disposed provider", func(t *testing.T) {
		scope := mustScope(t, p)
		require.NoError(t, scope.Dispose())
		_, err := CreateInstanceOf[*reportJob](scope, "late")
		require.ErrorIs(t, err, ErrUseAfterDispose)
	})
}

func TestGetServiceOrCreateInstance(t *testing.T) {
	p := activatorProvider(t)

	v, err := GetServiceOrCreateInstance(p, typeOf[*testLogger]())
	require.NoError(t, err)
	registered, _ := GetRequiredService[*testLogger](p)
	assert.Same(t, registered, v)

	v, err = GetServiceOrCreateInstance(p, typeOf[*testConfig]())
	require.NoError(t, err)
	assert.IsType(t, &testConfig{}, v)
}
