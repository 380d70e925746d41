// Package embedded provides access to embedded theme configuration files.
package embedded

import _ "embed"

// DefaultThemeData contains the embedded default theme YAML data.
//
//go:embed themes/default.yaml
var DefaultThemeData []byte

// PlainThemeData contains the embedded plain theme YAML data.
//
//go:embed themes/plain.yaml
var PlainThemeData []byte

// Themes maps theme names to their YAML data.
var Themes = map[string][]byte{
	"default": DefaultThemeData,
	"plain":   PlainThemeData,
}
