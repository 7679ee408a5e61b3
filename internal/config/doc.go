// Package config holds the exchange connection settings and loads the YAML
// configuration file used by the command-line tools.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation, which keeps API secrets out of the file itself.
package config
