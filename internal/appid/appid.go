// Package appid holds the application identity used for help text, config
// discovery, environment variable prefixes and telemetry namespaces.
package appid

import "strings"

// Identity describes how the binary presents itself.
type Identity struct {
	Vendor      string
	BinaryName  string
	ConfigName  string
	EnvPrefix   string
	Description string
}

var identity = Identity{
	Vendor:      "oasislearninghub",
	BinaryName:  "oasis",
	ConfigName:  "oasis",
	EnvPrefix:   "OASIS_",
	Description: "Oasis Learning Hub interaction service",
}

// Get returns the application identity.
func Get() Identity {
	return identity
}

// EnvKey returns the environment variable name for a config key, e.g.
// "server.port" becomes OASIS_SERVER_PORT.
func (i Identity) EnvKey(key string) string {
	key = strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	return i.EnvPrefix + key
}

// ViperPrefix is EnvPrefix without the trailing underscore, as viper
// appends its own separator.
func (i Identity) ViperPrefix() string {
	return strings.TrimSuffix(i.EnvPrefix, "_")
}

// TelemetryNamespace is the Prometheus metric prefix.
func (i Identity) TelemetryNamespace() string {
	return strings.ReplaceAll(i.BinaryName, "-", "_")
}
