// Package config loads llmx configuration with viper and godotenv.
//
// A YAML file (./llmx.yml, ./config.yml or ~/.config/llmx/config.yml) is read
// first, then a .env file is loaded into the process environment, then any
// LLMX_* variable overrides the matching key.
//
//	var cfg AppConfig
//	err := config.LoadConfig("llmx", &cfg, config.WithConfigFile(path))
package config
