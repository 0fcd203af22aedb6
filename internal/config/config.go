package config

type Config interface {
	EnvConfig
	CorsConfig
	EntraConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetFunctionsFile() string
	GetSPAOrigin() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Entra
}

func New() Config {
	return mainConfig{}
}
