// Package configs provides the embedded configuration templates the init
// command writes out.
package configs

import (
	_ "embed"
)

// ConfigYAML is the embedded YAML configuration template with the default
// panel, bridge, database and logging settings.
//
//go:embed config.example.yaml
var ConfigYAML []byte

// EnvExample is the embedded environment variables template.
//
//go:embed .env.example
var EnvExample []byte
