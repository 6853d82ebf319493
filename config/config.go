package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var ErrMissingProblem = errors.New("the PROBLEM environment variable must be set to the problem name")

// Settings is resolved once at startup and handed to everything that needs
// paths or worker counts.
type Settings struct {
	Problem       string
	SimulatorPath string
	MeshDir       string
	SimulationDir string
	TemplateDir   string
	// NProcs is the NPROC override, zero when unset.
	NProcs      int
	NProcsMax   int
	Verbosity   int
	HistoryPath string
	LogLevel    string
}

// Keys under which settings are read, with the environment variables bound
// to them.
var envKeys = map[string]string{
	"problem":      "PROBLEM",
	"fluiditypath": "FLUIDITYPATH",
	"simulator":    "SIMULATOR",
	"meshpath":     "MESHPATH",
	"simpath":      "SIMPATH",
	"templatepath": "TEMPLATEPATH",
	"nproc":        "NPROC",
	"nproc_max":    "IMPES_NPROC_MAX",
	"verbosity":    "IMPES_VERBOSITY",
	"history":      "IMPES_HISTORY",
	"log_level":    "IMPES_LOG_LEVEL",
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("meshpath", "meshes")
	v.SetDefault("simpath", "simulations")
	v.SetDefault("templatepath", ".")
	v.SetDefault("nproc_max", 6)
	v.SetDefault("verbosity", 0)
	v.SetDefault("history", "")
	v.SetDefault("log_level", "warn")
}

// LoadDotEnv reads the given .env files, or ./.env, without overriding
// variables already in the environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return errors.Wrapf(err, "bind %s", env)
		}
	}
	return nil
}

// HistoryPath resolves the history database alone, for commands that do not
// need a problem. It is empty when no history is kept.
func HistoryPath(v *viper.Viper) (string, error) {
	SetDefaults(v)
	if err := bindEnv(v); err != nil {
		return "", err
	}
	return homedir.Expand(v.GetString("history"))
}

// Load resolves the settings from v, whose flags should already be bound.
func Load(v *viper.Viper) (s *Settings, err error) {
	SetDefaults(v)
	if err = bindEnv(v); err != nil {
		return
	}
	s = &Settings{
		Problem:   v.GetString("problem"),
		NProcs:    v.GetInt("nproc"),
		NProcsMax: v.GetInt("nproc_max"),
		Verbosity: v.GetInt("verbosity"),
		LogLevel:  v.GetString("log_level"),
	}
	if s.Problem == "" {
		return nil, ErrMissingProblem
	}
	if s.NProcs < 0 {
		return nil, errors.Errorf("NPROC must not be negative, got %d", s.NProcs)
	}
	if s.NProcsMax < 1 {
		s.NProcsMax = runtime.NumCPU()
	}
	switch sim, fp := v.GetString("simulator"), v.GetString("fluiditypath"); {
	case sim != "":
		s.SimulatorPath = sim
	case fp != "":
		s.SimulatorPath = filepath.Join(fp, "bin", "darcy_impes")
	default:
		s.SimulatorPath = "darcy_impes"
	}
	for _, p := range []struct {
		dst *string
		key string
	}{
		{&s.SimulatorPath, ""},
		{&s.MeshDir, "meshpath"},
		{&s.SimulationDir, "simpath"},
		{&s.TemplateDir, "templatepath"},
		{&s.HistoryPath, "history"},
	} {
		if p.key != "" {
			*p.dst = v.GetString(p.key)
		}
		if *p.dst, err = homedir.Expand(*p.dst); err != nil {
			return nil, errors.Wrapf(err, "expand %s", *p.dst)
		}
	}
	return
}

// Workers is the worker count for the parallel driver: the NPROC override
// when set, else def, capped at NProcsMax.
func (s *Settings) Workers(def int) (n int) {
	n = def
	if s.NProcs > 0 {
		n = s.NProcs
	}
	if n < 1 {
		n = 1
	}
	if s.NProcsMax > 0 && n > s.NProcsMax {
		n = s.NProcsMax
	}
	return
}
