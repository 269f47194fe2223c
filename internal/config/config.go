package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// Section is the INI section holding the identity service credentials
	Section = "keystone_authtoken"

	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyProjectName       = "project_name"
	KeyUserDomainName    = "user_domain_name"
	KeyProjectDomainName = "project_domain_name"
	KeyAuthURI           = "auth_uri"
	KeyCACert            = "cacert"
)

// Keys lists the options read from Section
var Keys = []string{
	KeyUsername,
	KeyPassword,
	KeyProjectName,
	KeyUserDomainName,
	KeyProjectDomainName,
	KeyAuthURI,
	KeyCACert,
}

// ErrConfig is wrapped by every error returned from Load
var ErrConfig = errors.New("config error")

// ConnectionParams holds the recognized options found in Section.
// A key that is missing from the file is absent, never an empty string.
type ConnectionParams struct {
	values  map[string]string
	section bool
}

// NewConnectionParams builds params as if read from a file whose Section
// holds values. Unrecognized keys are dropped.
func NewConnectionParams(values map[string]string) ConnectionParams {
	p := ConnectionParams{values: make(map[string]string, len(values)), section: true}
	for _, key := range Keys {
		if v, ok := values[key]; ok {
			p.values[key] = v
		}
	}
	return p
}

// Get returns the raw value of key and whether it was present
func (p ConnectionParams) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Empty reports whether the file had no Section at all. A present but
// bare section is not empty.
func (p ConnectionParams) Empty() bool {
	return !p.section
}

// Len returns the number of options present
func (p ConnectionParams) Len() int {
	return len(p.values)
}

func (p ConnectionParams) Username() (string, bool) { return p.Get(KeyUsername) }
func (p ConnectionParams) Password() (string, bool) { return p.Get(KeyPassword) }
func (p ConnectionParams) ProjectName() (string, bool) { return p.Get(KeyProjectName) }
func (p ConnectionParams) UserDomainName() (string, bool) { return p.Get(KeyUserDomainName) }
func (p ConnectionParams) ProjectDomainName() (string, bool) { return p.Get(KeyProjectDomainName) }
func (p ConnectionParams) AuthURI() (string, bool) { return p.Get(KeyAuthURI) }
func (p ConnectionParams) CACert() (string, bool) { return p.Get(KeyCACert) }

// Load reads the connection parameters from the INI file at path.
// If the file has no Section the returned params are empty.
func Load(path string) (ConnectionParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ConnectionParams{}, fmt.Errorf("%w: config file not found at %s", ErrConfig, path)
		}
		return ConnectionParams{}, fmt.Errorf("%w: read config file: %w", ErrConfig, err)
	}

	return Parse(data)
}

// Parse reads the connection parameters from INI formatted data
func Parse(data []byte) (ConnectionParams, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		// Option names fold to lower case, values are kept verbatim.
		InsensitiveKeys:            true,
		IgnoreInlineComment:        true,
		IgnoreContinuation:         true,
		PreserveSurroundedQuote:    true,
		AllowPythonMultilineValues: true,
	}, data)
	if err != nil {
		return ConnectionParams{}, fmt.Errorf("%w: parse config file: %w", ErrConfig, err)
	}

	if !file.HasSection(Section) {
		return ConnectionParams{}, nil
	}

	section := file.Section(Section)
	defaults := file.Section(ini.DefaultSection)
	values := make(map[string]string, len(Keys))
	for _, key := range Keys {
		switch {
		case section.HasKey(key):
			values[key] = stripInlineComment(section.Key(key).Value())
		case defaults.HasKey(key):
			values[key] = stripInlineComment(defaults.Key(key).Value())
		}
	}

	return ConnectionParams{values: values, section: true}, nil
}

// stripInlineComment drops a ";" comment when the first ";" of the value
// follows whitespace, the way service config parsers read these files.
// "#" never starts an inline comment.
func stripInlineComment(value string) string {
	pos := strings.IndexByte(value, ';')
	if pos <= 0 {
		return value
	}
	if c := value[pos-1]; c != ' ' && c != '\t' {
		return value
	}
	return strings.TrimSpace(value[:pos])
}
