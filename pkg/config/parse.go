package config

import (
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/skevetter/contain/pkg/errdefs"
)

// FindDocument returns the path of the configuration document in folder,
// or an empty string if there is none.
func FindDocument(folder string) (string, error) {
	for _, name := range []string{ConfigFileName, AltConfigFileName} {
		path := filepath.Join(folder, name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", &errdefs.ConfigError{File: path, Reason: "cannot access document", Err: err}
		}
		if info.IsDir() {
			continue
		}

		return path, nil
	}

	return "", nil
}

// ParseDocument parses the configuration document at path. Any read or
// syntax error is reported as an errdefs.ConfigError for that file.
func ParseDocument(path string) (*Document, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "make path absolute")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errdefs.ConfigError{File: path, Reason: "read document", Err: err}
	}

	document := &Document{}
	err = yaml.Unmarshal(data, document)
	if err != nil {
		return nil, &errdefs.ConfigError{File: path, Reason: "parse document", Err: err}
	}
	if document.Images == nil {
		return nil, &errdefs.ConfigError{File: path, Field: "images", Reason: "required field is missing"}
	}

	document.Origin = path
	return document, nil
}

// Match returns the index of the first image entry applying to command, or
// -1 if there is none. An empty command matches the first entry.
func (d *Document) Match(command string) (int, error) {
	for i, entry := range d.Images {
		if len(entry.Commands) == 0 {
			return -1, &errdefs.MissingFieldError{File: d.Origin, Entry: i, Field: "commands"}
		}
		if command == "" || entry.Commands.Matches(command) {
			return i, nil
		}
	}

	return -1, nil
}
