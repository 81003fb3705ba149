package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

func TestBuildTarget_Profiles(t *testing.T) {
	target, err := buildTarget("https://shop.example.com", "quick", nil)
	require.NoError(t, err)
	assert.Equal(t, schemas.ScanKindQuick, target.Profile.Kind)
	assert.Equal(t, "https://shop.example.com", target.URL)

	target, err = buildTarget("https://shop.example.com", "deep", nil)
	require.NoError(t, err)
	assert.Equal(t, schemas.ScanKindDeep, target.Profile.Kind)
	assert.Equal(t, schemas.AllVulnClasses(), target.Profile.Focus)

	_, err = buildTarget("https://shop.example.com", "thorough", nil)
	assert.Error(t, err)
}

func TestBuildTarget_SchemeDefaultsToHTTPS(t *testing.T) {
	target, err := buildTarget("shop.example.com", "quick", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", target.URL)
}

func TestBuildTarget_FocusOverride(t *testing.T) {
	target, err := buildTarget("https://t", "deep", []string{"XSS", " sqli "})
	require.NoError(t, err)
	assert.Equal(t, []schemas.VulnClass{schemas.VulnXSS, schemas.VulnSQLi}, target.Profile.Focus)
}
