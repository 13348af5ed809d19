package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a config file encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFile reads, decodes, applies environment overrides to, and validates
// a config file. Settings absent from the file keep their defaults.
func LoadFile(path string) (File, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return File{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := Decode(path, format, bytes.NewReader(data))
	if err != nil {
		return File{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return File{}, err
	}
	if err := cfg.Editor.Validate(); err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a config document on top of the defaults. Unknown keys are
// rejected. The source name only appears in errors.
func Decode(source string, format Format, r io.Reader) (File, error) {
	cfg := Default()

	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(r).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return File{}, tomlParseError(source, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return File{}, yamlParseError(source, err)
		}
	default:
		return File{}, fmt.Errorf("%w: format %d", ErrUnsupportedFormat, format)
	}

	return cfg, nil
}

func tomlParseError(source string, err error) error {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var derr *toml.DecodeError
	var serr *toml.StrictMissingError
	switch {
	case errors.As(err, &derr):
		pe.Line, pe.Column = derr.Position()
	case errors.As(err, &serr) && len(serr.Errors) > 0:
		pe.Line, pe.Column = serr.Errors[0].Position()
		pe.Message = serr.String()
	}
	return pe
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlParseError(source string, err error) error {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

// envPrefix prefixes every environment override.
const envPrefix = "DOCLINES_"

// ApplyEnv overrides settings from environment variables:
// DOCLINES_LOG_LEVEL, DOCLINES_WRAP_MODE, DOCLINES_WRAP_WIDTH,
// DOCLINES_TAB_WIDTH and DOCLINES_INLAY_HINTS.
func ApplyEnv(cfg *File, lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup(envPrefix + "WRAP_MODE"); ok {
		cfg.Editor.WrapMode = WrapMode(v)
	}
	if err := envInt(lookup, "WRAP_WIDTH", &cfg.Editor.WrapWidth); err != nil {
		return err
	}
	if err := envInt(lookup, "TAB_WIDTH", &cfg.Editor.TabWidth); err != nil {
		return err
	}
	if v, ok := lookup(envPrefix + "INLAY_HINTS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Path: envPrefix + "INLAY_HINTS", Message: "must be a boolean", Value: v}
		}
		cfg.Editor.EnableInlayHints = b
	}
	return nil
}

func envInt(lookup func(string) (string, bool), name string, dst *int) error {
	v, ok := lookup(envPrefix + name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &ValidationError{Path: envPrefix + name, Message: "must be an integer", Value: v}
	}
	*dst = n
	return nil
}
