package grove

import "testing"

func BenchmarkRegister(b *testing.B) {
	for b.Loop() {
		c := NewServiceCollection()
		c.Register(newTestLogger)
		c.Register(newTestConfig)
		c.Register(newTestDatabase)
	}
}

func BenchmarkBuildProvider(b *testing.B) {
	c := NewServiceCollection()
	c.Register(newTestLogger)
	c.Register(newTestConfig)
	c.Register(newTestDatabase)
	c.Register(newTestUserRepo)
	c.Register(newTestUserService)

	for b.Loop() {
		NewProvider(c, WithLogger(quietLogger()))
	}
}

func BenchmarkGetService_Singleton(b *testing.B) {
	c := NewServiceCollection()
	c.Register(newTestLogger)
	c.Register(newTestConfig)
	c.Register(newTestDatabase)
	p := mustBuild(b, c)

	b.ResetTimer()
	for b.Loop() {
		GetRequiredService[*testDatabase](p)
	}
}

func BenchmarkGetService_Transient(b *testing.B) {
	for _, specialize := range []bool{false, true} {
		name := "interpreted"
		if specialize {
			name = "specialized"
		}
		b.Run(name, func(b *testing.B) {
			c := NewServiceCollection()
			c.Register(newTestLogger)
			c.Register(newTestConfig, WithLifetime(Scoped))
			c.Register(newTestDatabase, WithLifetime(Transient))
			p := mustBuild(b, c, WithSpecialization(specialize))
			scope := mustScope(b, p)

			b.ResetTimer()
			for b.Loop() {
				GetRequiredService[*testDatabase](scope)
			}
		})
	}
}

func BenchmarkGetServices(b *testing.B) {
	c := NewServiceCollection()
	c.Register(newTestLogger)
	c.Register(newTestOrderService, AsType[testService](), WithLifetime(Transient))
	c.Register(func() *testAuditService { return &testAuditService{} }, AsType[testService]())
	p := mustBuild(b, c)

	b.ResetTimer()
	for b.Loop() {
		GetServices[testService](p)
	}
}
