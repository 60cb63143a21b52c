// Package config loads agriflow's YAML configuration.
//
// Values may reference environment variables as ${VAR}; they are expanded
// before parsing. Every section has defaults, so an empty file is valid.
package config
