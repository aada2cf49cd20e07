package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/internal/dems/service"
	"github.com/pspdems/dems-backend/pkg/actor"
	"github.com/pspdems/dems-backend/pkg/errors"
)

type fakePlantLookup struct {
	plants map[int64]*repository.Plant
}

func (f *fakePlantLookup) GetByID(_ context.Context, id int64) (*repository.Plant, error) {
	plant, ok := f.plants[id]
	if !ok {
		return nil, errors.NotFound("plant")
	}
	return plant, nil
}

func int64Ptr(v int64) *int64 { return &v }

func newResolver(plants map[int64]*repository.Plant) *service.VisibilityResolver {
	return service.NewVisibilityResolver(&fakePlantLookup{plants: plants}, testLogger())
}

func TestResolveBCMPlantRestrictsNonDoctor(t *testing.T) {
	resolver := newResolver(map[int64]*repository.Plant{
		1: {ID: 1, Code: "BCM1", Name: "BCM Plant", IsBCM: true},
	})
	a := &actor.Actor{Login: "skumar", FullName: "S Kumar", Role: actor.RoleStore, PlantID: int64Ptr(1)}

	vis := resolver.Resolve(context.Background(), a)
	require.NotNil(t, vis.PlantID)
	assert.Equal(t, int64(1), *vis.PlantID)
	require.NotNil(t, vis.CreatorKey)
	assert.Equal(t, "skumar - S Kumar", *vis.CreatorKey)
}

func TestResolveBCMPlantDoctorSeesAll(t *testing.T) {
	resolver := newResolver(map[int64]*repository.Plant{
		1: {ID: 1, Code: "BCM1", Name: "BCM Plant", IsBCM: true},
	})
	a := &actor.Actor{Login: "drrao", FullName: "Dr Rao", Role: actor.RoleDoctor, PlantID: int64Ptr(1)}

	vis := resolver.Resolve(context.Background(), a)
	require.NotNil(t, vis.PlantID)
	assert.Nil(t, vis.CreatorKey, "doctors are never creator-restricted")
}

func TestResolveNonBCMPlantUnrestricted(t *testing.T) {
	resolver := newResolver(map[int64]*repository.Plant{
		2: {ID: 2, Code: "GEN1", Name: "General Plant", IsBCM: false},
	})
	a := &actor.Actor{Login: "skumar", FullName: "S Kumar", Role: actor.RoleCompounder, PlantID: int64Ptr(2)}

	vis := resolver.Resolve(context.Background(), a)
	require.NotNil(t, vis.PlantID)
	assert.Nil(t, vis.CreatorKey)
}

func TestResolveUnresolvedPlantFallsOpen(t *testing.T) {
	resolver := newResolver(nil)

	// No plant assigned at all.
	a := &actor.Actor{Login: "skumar", FullName: "S Kumar", Role: actor.RoleStore}
	vis := resolver.Resolve(context.Background(), a)
	assert.Nil(t, vis.PlantID)
	assert.Nil(t, vis.CreatorKey)

	// Plant id points nowhere.
	a.PlantID = int64Ptr(99)
	vis = resolver.Resolve(context.Background(), a)
	assert.Nil(t, vis.PlantID)
	assert.Nil(t, vis.CreatorKey)
}

func TestVisibilityFilters(t *testing.T) {
	key := "skumar - S Kumar"
	vis := service.Visibility{PlantID: int64Ptr(1), CreatorKey: &key}

	bf := vis.BatchFilter()
	require.NotNil(t, bf.PlantID)
	assert.Equal(t, int64(1), *bf.PlantID)
	require.NotNil(t, bf.CreatedBy)
	assert.Equal(t, key, *bf.CreatedBy)

	inf := vis.IndentFilter()
	require.NotNil(t, inf.PlantID)
	require.NotNil(t, inf.CreatedBy)

	open := service.OpenVisibility()
	assert.Nil(t, open.BatchFilter().PlantID)
	assert.Nil(t, open.IndentFilter().CreatedBy)
}
