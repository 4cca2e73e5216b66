package container_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-containers/framework/container"
)

func TestFor_DefaultsToSelfTransient(t *testing.T) {
	c := container.New()
	require.NoError(t, c.For(concreteType).Register())

	regs := slices.Collect(c.GetRegistered(concreteType))
	require.Len(t, regs, 1)
	assert.Equal(t, concreteType, regs[0].Implementation)
	assert.Equal(t, container.Transient, regs[0].Lifetime)
	assert.Equal(t, container.KindType, regs[0].Kind)
}

func TestFor_WithDefaultLifetime(t *testing.T) {
	c := container.New(container.WithDefaultLifetime(container.Singleton))
	require.NoError(t, c.For(abstractionType).ImplementedBy(concreteType).Register())

	a, err := c.GetInstance(context.Background(), abstractionType)
	require.NoError(t, err)
	b, err := c.GetInstance(context.Background(), abstractionType)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestFor_InvalidDefaultLifetimeIgnored(t *testing.T) {
	c := container.New(container.WithDefaultLifetime(container.Lifetime(99)))
	require.NoError(t, c.For(concreteType).Register())

	for reg := range c.GetRegistered(concreteType) {
		assert.Equal(t, container.Transient, reg.Lifetime)
	}
}

func TestFor_Variants(t *testing.T) {
	c := container.New()
	ctx, scope := c.BeginScope(context.Background())
	defer scope.Close()

	inst := &Concrete{id: 9}
	require.NoError(t, c.For(abstractionType).ImplementedBy(concreteType).Named("type").LifestyleScoped().Register())
	require.NoError(t, c.For(abstractionType).UsingConstructor(func() *AnotherConcrete { return &AnotherConcrete{} }).Named("ctor").LifestyleRequest().Register())
	require.NoError(t, c.For(abstractionType).UsingFactory(func(context.Context, container.Resolver) (any, error) {
		return &Concrete{id: 1}, nil
	}).Named("factory").LifestyleSingleton().Register())
	require.NoError(t, c.For(abstractionType).Instance(inst).Named("instance").LifestyleTransient().Register())

	kinds := map[string]container.Kind{}
	lifetimes := map[string]container.Lifetime{}
	for reg := range c.GetRegistered(abstractionType) {
		kinds[reg.Name] = reg.Kind
		lifetimes[reg.Name] = reg.Lifetime
	}
	assert.Equal(t, map[string]container.Kind{
		"type":     container.KindType,
		"ctor":     container.KindConstructor,
		"factory":  container.KindFactory,
		"instance": container.KindInstance,
	}, kinds)
	assert.Equal(t, container.Singleton, lifetimes["instance"], "instances are always singletons")
	assert.Equal(t, container.Request, lifetimes["ctor"])

	got, err := c.GetNamedInstance(ctx, abstractionType, "instance")
	require.NoError(t, err)
	assert.Same(t, inst, got)

	all, err := c.GetAllInstances(ctx, abstractionType)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFor_PropagatesValidation(t *testing.T) {
	c := container.New()
	err := c.For(abstractionType).ImplementedBy(firstType).Register()
	assert.True(t, container.IsInvalidRegistration(err))

	err = c.For(abstractionType).Lifestyle(container.Lifetime(-1)).Register()
	assert.True(t, container.IsInvalidRegistration(err))
}
