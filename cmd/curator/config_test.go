// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/music-curator/pkg/types"
)

func TestRegisterDefaultsRoundTrip(t *testing.T) {
	vp := viper.New()
	def := types.DefaultConfig()
	require.NoError(t, registerDefaults(vp, def))

	assert.True(t, vp.IsSet("search.endpoint"))
	assert.True(t, vp.IsSet("index.web_search.api_key"))

	var got types.Config
	require.NoError(t, vp.Unmarshal(&got))
	assert.Equal(t, def.Search.Endpoint, got.Search.Endpoint)
	assert.Equal(t, def.Search.RequestsPerMinute, got.Search.RequestsPerMinute)
	assert.Equal(t, 6*time.Hour, got.Search.CacheTTL)
	assert.Equal(t, def.Index.Weights, got.Index.Weights)
	assert.Equal(t, def.Index.WebSearch.Ceiling, got.Index.WebSearch.Ceiling)
	require.NoError(t, got.Validate())
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("CURATOR_INDEX_MAX_ALBUMS", "25")
	t.Setenv("CURATOR_SEARCH_CACHE_TTL", "90m")

	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	require.NoError(t, registerDefaults(vp, types.DefaultConfig()))

	got := types.DefaultConfig()
	require.NoError(t, vp.Unmarshal(&got))
	assert.Equal(t, 25, got.Index.MaxAlbums)
	assert.Equal(t, 90*time.Minute, got.Search.CacheTTL)
}
