/*
   Khabarchin - Telegram news watchdog and approval pipeline
   Copyright (C) 2025  Khabarchin contributors

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khabarchin/internal/classify"
	"khabarchin/internal/config"
	"khabarchin/internal/relevance"
)

func resetPath(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { config.CONFIG_PATH = "" })
}

func TestDefaultConfig(t *testing.T) {
	conf := config.DefaultConfig()

	assert.Equal(t, uint(30), conf.Pipeline.PollSeconds)
	assert.Equal(t, 30, conf.Pipeline.MinMessageLength)
	assert.Equal(t, 5, conf.Pipeline.MinRelevance)
	assert.Equal(t, uint(24), conf.Pipeline.MaxCandidateAgeHours)
	assert.Equal(t, uint(7), conf.Pipeline.SeenRetentionDays)
	assert.Equal(t, 30, conf.Queue.Capacity)
	assert.Equal(t, "pending.json", conf.Store.File)
	assert.Equal(t, "khabarchin.sqlite3", conf.DB.File)
	assert.Equal(t, ":8080", conf.Web.Address)
	assert.Equal(t, "admin", conf.Web.Username)
	assert.False(t, conf.Ollama.Enabled)
	assert.Equal(t, 85, conf.Ollama.ApproveAt)
	assert.Equal(t, 20, conf.Ollama.RejectAt)
}

func TestSaveRoundTrip(t *testing.T) {
	resetPath(t)
	path := filepath.Join(t.TempDir(), "config.json")

	conf := config.DefaultConfig()
	conf.Telegram.Channels = []string{"news", "varzesh"}
	conf.Pipeline.MinRelevance = 8
	conf.Sheets.Google.CredentialsJSON = []byte(`{"type":"service_account"}`)
	require.NoError(t, conf.Save(path))

	// Save strips credentials from the file, not from the running config.
	assert.NotNil(t, conf.Sheets.Google.CredentialsJSON)

	loaded, err := config.ConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "varzesh"}, loaded.Telegram.Channels)
	assert.Equal(t, 8, loaded.Pipeline.MinRelevance)
	assert.Nil(t, loaded.Sheets.Google.CredentialsJSON)
	assert.Equal(t, path, config.CONFIG_PATH)
}

func TestEnvOverridesFileSecrets(t *testing.T) {
	resetPath(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, config.DefaultConfig().Save(path))

	t.Setenv(config.EnvToken, "123:abc")
	t.Setenv(config.EnvWebPassword, "hunter2")
	t.Setenv(config.EnvJWTSecret, "s3cret")

	loaded, err := config.ConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", loaded.Telegram.ApiToken)
	assert.Equal(t, "hunter2", loaded.Web.Password)
	assert.Equal(t, "s3cret", loaded.Web.JWTSecret)
}

func TestUpdate(t *testing.T) {
	resetPath(t)

	config.CONFIG_PATH = ""
	assert.Error(t, config.DefaultConfig().Update(), "update without a known file must fail")

	path := filepath.Join(t.TempDir(), "config.json")
	conf := config.DefaultConfig()
	require.NoError(t, conf.Save(path))

	conf.Pipeline.PollSeconds = 60
	require.NoError(t, conf.Update())

	loaded, err := config.ConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, uint(60), loaded.Pipeline.PollSeconds)
}

func TestKeywordTables(t *testing.T) {
	conf := config.DefaultConfig()

	assert.Equal(t, classify.DefaultKeywords(), conf.ClassifierKeywords())
	assert.Equal(t, relevance.DefaultTaxonomy(), conf.RelevanceTaxonomy())

	custom := classify.DefaultKeywords()
	custom.Financial = append(custom.Financial, "بیت‌کوین")
	conf.Keywords.Classifier = &custom
	assert.Equal(t, custom, conf.ClassifierKeywords())

	tax := relevance.DefaultTaxonomy()
	tax.Regional = append(tax.Regional, "دریای سرخ")
	conf.Keywords.Relevance = &tax
	assert.Equal(t, tax, conf.RelevanceTaxonomy())
}

func TestConfigFromMissingFile(t *testing.T) {
	_, err := config.ConfigFrom(filepath.Join(t.TempDir(), "no-such.json"))
	assert.Error(t, err)
}
