package dotenv

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	EnvVar  = "POSTSYNC_ENV"
	DevEnv  = "dev"
	TestEnv = "test"
	ProdEnv = "prod"
)

// CurrentEnv returns the runtime env name, "dev" when unset.
func CurrentEnv() string {
	env := os.Getenv(EnvVar)
	if env == "" {
		return DevEnv
	}
	return env
}

// LoadDotEnvs loads the .env files following the convention: https://github.com/bkeepers/dotenv#what-other-env-files-can-i-use
// It only need to be called once in main function, other code can read env
// through os.Getenv during runtime.
func LoadDotEnvs() error {
	loadDotEnvs("")
	return nil
}

func loadDotEnvs(rootPath string) {
	env := CurrentEnv()

	// godotenv never overrides a variable that is already set, so files are
	// loaded from highest to lowest priority.
	// .env.[runtime_env].local usually contains credentials.
	godotenv.Load(rootPath + ".env." + env + ".local")
	godotenv.Load(rootPath + ".env.local")
	// .env.[runtime_env] usually contains store connection information
	godotenv.Load(rootPath + ".env." + env)
	// .env contains shared variables
	godotenv.Load(rootPath + ".env")
}

// Have to write this helper function due to a known issue of godotenv
// https://github.com/joho/godotenv/issues/43
// Tests run in their package directory, .env.test lives next to go.mod.
func LoadDotEnvsInTests() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	godotenv.Load(filepath.Join(moduleRoot(cwd), ".env.test"))
	return nil
}

// moduleRoot returns the closest ancestor of dir holding a go.mod, or dir
// itself when there is none.
func moduleRoot(dir string) string {
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d
		}
		parent := filepath.Dir(d)
		if parent == d {
			return dir
		}
		d = parent
	}
}
