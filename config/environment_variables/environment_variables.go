package environment_variables

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type EnvironmentVariablesType struct {
	CAREERTRACK_API_URL         string
	CAREERTRACK_SESSION_PATH    string
	CAREERTRACK_REQUEST_TIMEOUT time.Duration
}

var EnvironmentVariables = EnvironmentVariablesType{}

func (env *EnvironmentVariablesType) LoadFromEnv() {
	env.CAREERTRACK_API_URL = getEnv("CAREERTRACK_API_URL", "https://api.careertrack.dev")
	env.CAREERTRACK_SESSION_PATH = getEnv("CAREERTRACK_SESSION_PATH", defaultSessionPath())
	env.CAREERTRACK_REQUEST_TIMEOUT = getEnvDuration("CAREERTRACK_REQUEST_TIMEOUT_SECONDS", 20*time.Second)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "careertrack-session.db"
	}
	return filepath.Join(home, ".careertrack", "session.db")
}
