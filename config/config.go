// Package config turns structured destination definitions into the ordered
// connection parameter sets the engine consumes. Destinations come from a
// TOML file, from the environment, or from both (file first, env overrides).
package config

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"

	"github.com/nwbridge/rfc-server-go/rfc"
)

// Destination is one named connection or server registration target.
type Destination struct {
	// Host is the application server host. ENV: RFC_HOST
	Host string `toml:"host" env:"RFC_HOST"`
	// SystemNumber is the two-digit instance number. ENV: RFC_SYSNR
	SystemNumber string `toml:"system_number" env:"RFC_SYSNR"`
	// Client is the logon client. ENV: RFC_CLIENT
	Client string `toml:"client" env:"RFC_CLIENT"`
	// User and Password authenticate the connection. ENV: RFC_USER, RFC_PASSWD
	User     string `toml:"user" env:"RFC_USER"`
	Password string `toml:"password" env:"RFC_PASSWD"`
	// Language is the logon language. ENV: RFC_LANG
	Language string `toml:"language" env:"RFC_LANG"`

	// GatewayHost, GatewayService and ProgramID register a server endpoint
	// at a gateway. ENV: RFC_GWHOST, RFC_GWSERV, RFC_PROGRAM_ID
	GatewayHost    string `toml:"gateway_host" env:"RFC_GWHOST"`
	GatewayService string `toml:"gateway_service" env:"RFC_GWSERV"`
	ProgramID      string `toml:"program_id" env:"RFC_PROGRAM_ID"`

	// Extra carries engine parameters this package does not model. They are
	// appended after the named fields in key order.
	Extra map[string]string `toml:"extra"`
}

// Parameters renders the destination as the ordered parameter set the engine
// expects. Empty fields are omitted.
func (d Destination) Parameters() rfc.ConnectionParameters {
	named := []rfc.ConnectionParameter{
		{Name: "ashost", Value: d.Host},
		{Name: "sysnr", Value: d.SystemNumber},
		{Name: "client", Value: d.Client},
		{Name: "user", Value: d.User},
		{Name: "passwd", Value: d.Password},
		{Name: "lang", Value: d.Language},
		{Name: "gwhost", Value: d.GatewayHost},
		{Name: "gwserv", Value: d.GatewayService},
		{Name: "program_id", Value: d.ProgramID},
	}
	var params rfc.ConnectionParameters
	for _, p := range named {
		if p.Value != "" {
			params = append(params, p)
		}
	}
	extraKeys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		params = append(params, rfc.ConnectionParameter{Name: k, Value: d.Extra[k]})
	}
	return params
}

// merge overlays non-empty fields of other onto d.
func (d Destination) merge(other Destination) Destination {
	out := d
	if other.Host != "" {
		out.Host = other.Host
	}
	if other.SystemNumber != "" {
		out.SystemNumber = other.SystemNumber
	}
	if other.Client != "" {
		out.Client = other.Client
	}
	if other.User != "" {
		out.User = other.User
	}
	if other.Password != "" {
		out.Password = other.Password
	}
	if other.Language != "" {
		out.Language = other.Language
	}
	if other.GatewayHost != "" {
		out.GatewayHost = other.GatewayHost
	}
	if other.GatewayService != "" {
		out.GatewayService = other.GatewayService
	}
	if other.ProgramID != "" {
		out.ProgramID = other.ProgramID
	}
	for k, v := range other.Extra {
		if out.Extra == nil {
			out.Extra = map[string]string{}
		}
		out.Extra[k] = v
	}
	return out
}

// File is a parsed destination file.
type File struct {
	Destinations map[string]Destination `toml:"destinations"`
}

// LoadFile parses a TOML destination file.
func LoadFile(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return &f, nil
}

// Destination returns the named destination from the file.
func (f *File) Destination(name string) (Destination, error) {
	d, ok := f.Destinations[name]
	if !ok {
		return Destination{}, fmt.Errorf("config: destination %q not defined", name)
	}
	return d, nil
}

// FromEnv decodes a destination from RFC_* environment variables. Every
// variable is optional; unset variables leave their field empty.
func FromEnv() Destination {
	var d Destination
	// All fields are optional, so a decode "failure" only means nothing was
	// set.
	_ = envdecode.Decode(&d)
	return d
}

// ResolveEnv returns the named file destination overlaid with any RFC_*
// environment overrides.
func (f *File) ResolveEnv(name string) (Destination, error) {
	base, err := f.Destination(name)
	if err != nil {
		return Destination{}, err
	}
	return base.merge(FromEnv()), nil
}
