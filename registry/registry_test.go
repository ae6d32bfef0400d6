// registry/registry_test.go
package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
	"github.com/albeach/DIVE-V3-sub011/registry"
	"github.com/albeach/DIVE-V3-sub011/test/mock"
)

func TestMain(m *testing.M) {
	logger.InitLogger(".")
	m.Run()
}

func coalitionEntries() []model.InstanceRegistryEntry {
	return []model.InstanceRegistryEntry{
		{
			InstanceID: "usa-instance",
			Country:    "USA",
			ClearanceMapping: map[string]model.ClearanceLevel{
				"SECRET": model.Secret,
			},
			TrustedKAS:        []string{"kas-usa", "kas-deu"},
			MaxClassification: model.TopSecret,
			AllowedCOIs:       []string{"FVEY", "NATO"},
			KASEndpoints:      map[string]string{"kas-usa": "https://kas.usa.example/release"},
		},
		{
			InstanceID: "deu-instance",
			Country:    "DEU",
			ClearanceMapping: map[string]model.ClearanceLevel{
				"GEHEIM":        model.Secret,
				"STRENG GEHEIM": model.TopSecret,
			},
			TrustedKAS:        []string{"kas-deu", "kas-usa"},
			MaxClassification: model.Secret,
			AllowedCOIs:       []string{"NATO"},
			KASEndpoints: map[string]string{
				"kas-deu": "https://kas.deu.example/release",
				"kas-usa": "https://kas.usa.mirror.example/release",
			},
		},
		{
			InstanceID:        "fra-instance",
			Country:           "FRA",
			TrustedKAS:        []string{"kas-fra"},
			MaxClassification: model.Confidential,
			KASEndpoints:      map[string]string{"kas-fra": "https://kas.fra.example/release"},
		},
	}
}

func loadedRegistry(t *testing.T) *registry.InstanceRegistry {
	t.Helper()
	store := new(mock.MockRegistryStore)
	store.On("ListInstances", testify_mock.Anything).Return(coalitionEntries(), nil)

	reg := registry.NewInstanceRegistry(store, "usa-instance")
	require.NoError(t, reg.Refresh(context.Background()))
	return reg
}

func TestEntryUnknownInstance(t *testing.T) {
	reg := loadedRegistry(t)

	_, err := reg.Entry("xyz-instance")
	assert.ErrorIs(t, err, dive_errors.ErrUnknownInstance)
}

func TestCeiling(t *testing.T) {
	reg := loadedRegistry(t)

	ceiling, err := reg.Ceiling("deu-instance")
	require.NoError(t, err)
	assert.Equal(t, model.Secret, ceiling)
}

func TestTranslateToLocalTermPrefersInstanceMapping(t *testing.T) {
	reg := loadedRegistry(t)

	term, err := reg.TranslateToLocalTerm("deu-instance", model.Secret)
	require.NoError(t, err)
	assert.Equal(t, "GEHEIM", term)
}

func TestTranslateToLocalTermFallsBackToCountryTable(t *testing.T) {
	reg := loadedRegistry(t)

	// fra-instance has no clearance mapping of its own
	term, err := reg.TranslateToLocalTerm("fra-instance", model.Secret)
	require.NoError(t, err)
	assert.Equal(t, "SECRET DEFENSE", term)
}

func TestIsTrustedKASRequiresBothDirections(t *testing.T) {
	reg := loadedRegistry(t)

	// kas-usa is declared by both usa-instance and deu-instance
	assert.True(t, reg.IsTrustedKAS("usa-instance", "deu-instance", "kas-usa"))

	// kas-fra is declared only by fra-instance; trust is not implied symmetric
	assert.False(t, reg.IsTrustedKAS("usa-instance", "fra-instance", "kas-fra"))
	assert.False(t, reg.IsTrustedKAS("fra-instance", "usa-instance", "kas-usa"))
}

func TestResolveRouteBilateral(t *testing.T) {
	reg := loadedRegistry(t)

	route, err := reg.ResolveRoute("deu-instance", "usa-instance")
	require.NoError(t, err)
	assert.Equal(t, "kas-usa", route.KASID)
	assert.Equal(t, "https://kas.usa.mirror.example/release", route.KASURL)
	assert.False(t, route.FallbackUsed)
}

func TestResolveRouteFallsBackToOriginDefault(t *testing.T) {
	reg := loadedRegistry(t)

	route, err := reg.ResolveRoute("fra-instance", "usa-instance")
	require.NoError(t, err)
	assert.Equal(t, "kas-fra", route.KASID)
	assert.True(t, route.FallbackUsed)
}

func TestUpsertEntryUpdatesSnapshot(t *testing.T) {
	store := new(mock.MockRegistryStore)
	store.On("ListInstances", testify_mock.Anything).Return(coalitionEntries(), nil)
	newEntry := model.InstanceRegistryEntry{
		InstanceID:        "esp-instance",
		Country:           "ESP",
		MaxClassification: model.Secret,
	}
	store.On("UpsertInstance", testify_mock.Anything, newEntry).Return(&newEntry, nil)

	reg := registry.NewInstanceRegistry(store, "usa-instance")
	require.NoError(t, reg.Refresh(context.Background()))

	_, err := reg.UpsertEntry(context.Background(), newEntry)
	require.NoError(t, err)

	entry, err := reg.Entry("esp-instance")
	require.NoError(t, err)
	assert.Equal(t, "ESP", entry.Country)
	store.AssertExpectations(t)
}
