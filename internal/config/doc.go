// Package config provides the editor settings that drive the line model.
//
// Settings come from three layers, later ones overriding earlier:
//
//  1. Built-in defaults (Default, DefaultEditor)
//  2. A TOML or YAML file, selected by extension
//  3. DOCLINES_* environment variables
//
// A TOML file looks like:
//
//	log_level = "debug"
//
//	[editor]
//	wrap_mode = "column"
//	wrap_width = 100
//	error_lens_severity = "information"
//
// Watcher reloads the file on change and hands the validated result to a
// callback, typically DocLines.UpdateConfig.
package config
