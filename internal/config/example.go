package config

import _ "embed"

// ExampleConfig is written by `threads init`.
//
//go:embed config.example.json
var ExampleConfig []byte
