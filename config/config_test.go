package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envKeys {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	{ // Test the required problem name
		_, err := Load(viper.New())
		assert.ErrorIs(t, err, ErrMissingProblem)
	}
	{ // Test defaults
		t.Setenv("PROBLEM", "darcy_impes_p1_2phase_bl")
		s, err := Load(viper.New())
		require.NoError(t, err)
		assert.Equal(t, "darcy_impes_p1_2phase_bl", s.Problem)
		assert.Equal(t, "darcy_impes", s.SimulatorPath)
		assert.Equal(t, "meshes", s.MeshDir)
		assert.Equal(t, "simulations", s.SimulationDir)
		assert.Equal(t, ".", s.TemplateDir)
		assert.Equal(t, 0, s.NProcs)
		assert.Equal(t, 6, s.NProcsMax)
		assert.Equal(t, "warn", s.LogLevel)
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	homedir.DisableCache = true
	t.Setenv("HOME", home)
	t.Setenv("PROBLEM", "bl")
	t.Setenv("FLUIDITYPATH", "/opt/fluidity")
	t.Setenv("MESHPATH", "~/meshes")
	t.Setenv("NPROC", "3")
	t.Setenv("IMPES_LOG_LEVEL", "debug")
	s, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "/opt/fluidity/bin/darcy_impes", s.SimulatorPath)
	assert.Equal(t, filepath.Join(home, "meshes"), s.MeshDir)
	assert.Equal(t, 3, s.NProcs)
	assert.Equal(t, "debug", s.LogLevel)

	t.Setenv("SIMULATOR", "/usr/local/bin/darcy_impes_dbg")
	s, err = Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/darcy_impes_dbg", s.SimulatorPath)

	t.Setenv("NPROC", "-2")
	_, err = Load(viper.New())
	assert.Error(t, err)
}

func TestWorkers(t *testing.T) {
	s := &Settings{NProcsMax: 6}
	assert.Equal(t, 4, s.Workers(4))
	assert.Equal(t, 1, s.Workers(0))
	assert.Equal(t, 6, s.Workers(12))
	s.NProcs = 2
	assert.Equal(t, 2, s.Workers(4))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("PROBLEM=from_dotenv\nSIMPATH=sims\n"), 0644))
	t.Setenv("SIMPATH", "already_set")
	require.NoError(t, LoadDotEnv(dotenv, filepath.Join(dir, "missing.env")))
	s, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", s.Problem)
	assert.Equal(t, "already_set", s.SimulationDir)
}

func TestHistoryPath(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	homedir.DisableCache = true
	t.Setenv("HOME", home)
	p, err := HistoryPath(viper.New())
	require.NoError(t, err)
	assert.Empty(t, p)
	t.Setenv("IMPES_HISTORY", "~/impes.db")
	p, err = HistoryPath(viper.New())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "impes.db"), p)
}
