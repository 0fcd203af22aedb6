package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	functionsFileVar = "FUNCTIONS_FILE"
	spaOriginVar     = "SPA_ORIGIN"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "4000")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Function Gateway")
}

// GetFunctionsFile returns the path of the JSON file holding the function catalog
func (EnvVars) GetFunctionsFile() string {
	return GetEnv(functionsFileVar, "./functions.json")
}

// GetSPAOrigin returns the origin the redirect flow sends the browser back to
// after a completed provider handshake
func (EnvVars) GetSPAOrigin() string {
	return GetEnv(spaOriginVar, "http://localhost:5173")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
