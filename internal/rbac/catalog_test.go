package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechcare/backoffice/internal/shared"
)

func TestCatalogHasEightCodes(t *testing.T) {
	all := AllModules()
	require.Len(t, all, 8)
	for _, code := range all {
		assert.True(t, IsValidModule(string(code)), code)
		assert.NotEmpty(t, code.DisplayName(), code)
	}
}

func TestAllModulesReturnsCopy(t *testing.T) {
	first := AllModules()
	first[0] = "MUTATED"
	assert.Equal(t, ModuleAuth, AllModules()[0])
}

func TestIsValidModuleIsExact(t *testing.T) {
	assert.True(t, IsValidModule("REPORTS"))
	assert.False(t, IsValidModule("reports"))
	assert.False(t, IsValidModule(" REPORTS"))
	assert.False(t, IsValidModule(""))
	assert.False(t, IsValidModule("INVENTORY"))
}

func TestNewModuleSetOrdersAndDeduplicates(t *testing.T) {
	set := NewModuleSet(ModuleTools, ModuleAuth, ModuleTools, "BOGUS", ModuleReports)
	assert.Equal(t, ModuleSet{ModuleAuth, ModuleReports, ModuleTools}, set)
}

func TestParseModulesRejectsUnknownCodes(t *testing.T) {
	_, err := ParseModules([]string{"REPORTS", "FOO", "billing"})
	require.Error(t, err)

	var unknown *UnknownModuleError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"FOO", "billing"}, unknown.Codes)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Contains(t, err.Error(), "invalid module codes: FOO, billing")
	assert.Contains(t, err.Error(), "Valid codes: AUTH, CLIENTS")
}

func TestParseModulesEmptyInput(t *testing.T) {
	set, err := ParseModules(nil)
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.NotNil(t, set.Strings())
}

func TestParseModulesCanonicalOrder(t *testing.T) {
	set, err := ParseModules([]string{"BILLING", "REPORTS", "BILLING"})
	require.NoError(t, err)
	assert.Equal(t, []string{"REPORTS", "BILLING"}, set.Strings())
	assert.True(t, set.Contains(ModuleBilling))
	assert.False(t, set.Contains(ModuleAuth))
}
