// Package config loads the swap bot's YAML configuration.
//
// Configuration files support ${VAR_NAME} environment variable
// expansion, which is applied to the raw file content before parsing.
// Duration fields are written as Go duration strings ("30s", "10m").
// Load applies defaults for unset optional fields and validates the
// result; a config that loads is a config the bot can start with.
package config
