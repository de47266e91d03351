package config

type Config interface {
	EnvConfig
	OAuthConfig
}

type mainConfig struct {
	EnvVars
	OAuth
}

func New() Config {
	return mainConfig{}
}
