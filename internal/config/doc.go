// Package config loads the TaskDeck runtime configuration from a YAML file,
// applies environment overrides such as PORT and fills in defaults so the
// service can start with no configuration file at all.
package config
