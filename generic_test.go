package grove

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repository[T any] interface {
	Kind() string
}

type memoryRepo[T any] struct {
	Logger *testLogger
}

func (r *memoryRepo[T]) Kind() string { return "memory" }

func newMemoryRepo[T any](l *testLogger) *memoryRepo[T] { return &memoryRepo[T]{Logger: l} }

type cachedRepo[T any] struct{}

func (r *cachedRepo[T]) Kind() string { return "cached" }

type repoConsumer struct {
	Configs repository[*testConfig]
}

func genericCollection(t *testing.T) *ServiceCollection {
	t.Helper()
	c := NewServiceCollection()
	mustRegister(t, c, newTestLogger)
	for _, fn := range []any{newMemoryRepo[*testConfig], newMemoryRepo[*testLogger]} {
		_, err := c.Constructors().Register(fn)
		require.NoError(t, err)
	}
	require.NoError(t, c.AddOpenGeneric(typeOf[repository[any]](), typeOf[*memoryRepo[any]](), Scoped))
	return c
}

func TestGenericOf(t *testing.T) {
	g, ok := genericOf(typeOf[*memoryRepo[*testConfig]]())
	require.True(t, ok)
	assert.Equal(t, "*github.com/ARTM2000/grove.memoryRepo", g.definition)
	assert.Equal(t, "[*github.com/ARTM2000/grove.testConfig]", g.args)

	open, ok := genericOf(typeOf[*memoryRepo[any]]())
	require.True(t, ok)
	assert.Equal(t, g.definition, open.definition)

	_, ok = genericOf(typeOf[*testConfig]())
	assert.False(t, ok)
	_, ok = genericOf(nil)
	assert.False(t, ok)
}

func TestOpenGenerics(t *testing.T) {
	t.Run("closes per instantiation", func(t *testing.T) {
		scope := mustScope(t, mustBuild(t, genericCollection(t)))

		configs, err := GetRequiredService[repository[*testConfig]](scope)
		require.NoError(t, err)
		loggers, err := GetRequiredService[repository[*testLogger]](scope)
		require.NoError(t, err)

		assert.IsType(t, &memoryRepo[*testConfig]{}, configs)
		assert.IsType(t, &memoryRepo[*testLogger]{}, loggers)
		assert.NotNil(t, configs.(*memoryRepo[*testConfig]).Logger)

		again, _ := GetRequiredService[repository[*testConfig]](scope)
		assert.Same(t, configs, again)
	})

	t.Run("identity is stable across plans", func(t *testing.T) {
		c := genericCollection(t)
		mustRegister(t, c, func(r repository[*testConfig]) *repoConsumer {
			return &repoConsumer{Configs: r}
		}, WithLifetime(Scoped))
		scope := mustScope(t, mustBuild(t, c))

		consumer, err := GetRequiredService[*repoConsumer](scope)
		require.NoError(t, err)
		direct, err := GetRequiredService[repository[*testConfig]](scope)
		require.NoError(t, err)
		assert.Same(t, direct, consumer.Configs)
	})

	t.Run("closed registration takes precedence", func(t *testing.T) {
		c := genericCollection(t)
		require.NoError(t, AddTyped[repository[*testConfig], *cachedRepo[*testConfig]](c, Scoped))
		scope := mustScope(t, mustBuild(t, c))

		r, err := GetRequiredService[repository[*testConfig]](scope)
		require.NoError(t, err)
		assert.Equal(t, "cached", r.Kind())
	})

	t.Run("collection of closed open generics", func(t *testing.T) {
		c := genericCollection(t)
		_, err := c.Constructors().Register(func() *cachedRepo[*testConfig] { return &cachedRepo[*testConfig]{} })
		require.NoError(t, err)
		require.NoError(t, c.AddOpenGeneric(typeOf[repository[any]](), typeOf[*cachedRepo[any]](), Transient))
		scope := mustScope(t, mustBuild(t, c))

		all, err := GetServices[repository[*testConfig]](scope)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "memory", all[0].Kind())
		assert.Equal(t, "cached", all[1].Kind())

		last, err := GetRequiredService[repository[*testConfig]](scope)
		require.NoError(t, err)
		assert.Equal(t, "cached", last.Kind())
	})

	t.Run("missing instantiation", func(t *testing.T) {
		scope := mustScope(t, mustBuild(t, genericCollection(t)))

		_, err := scope.GetService(typeOf[repository[*testDatabase]]())
		require.ErrorIs(t, err, ErrNoPublicConstructor)
	})

	t.Run("introspector without closing support", func(t *testing.T) {
		scope := mustScope(t, mustBuild(t, genericCollection(t), WithIntrospector(plainIntrospector{})))

		_, err := scope.GetService(typeOf[repository[*testConfig]]())
		require.ErrorIs(t, err, ErrNoPublicConstructor)
	})
}

// plainIntrospector knows constructors but cannot close generic types.
type plainIntrospector struct{}

func (plainIntrospector) Constructors(t reflect.Type) []Constructor {
	return NewConstructorSet().Constructors(t)
}
