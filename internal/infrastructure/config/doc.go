// Package config loads and validates Hearth Core configuration.
//
// Configuration is read from a YAML file, with defaults applied first and
// environment variables (HEARTH_SECTION_KEY) applied last. Validation
// normalises missing numeric values to their defaults and rejects
// configurations that cannot work (bad ports, enabled subsystems without
// required fields).
//
// The entries section seeds config entries on first boot so a fresh
// installation can come up with working integrations before any API client
// connects:
//
//	entries:
//	  - domain: powermeter
//	    title: Garage meter
//	    data:
//	      host: 192.168.1.40
//	      token: abc123
//	    options:
//	      poll_interval: 30
package config
