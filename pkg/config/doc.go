// Package config defines the trafficward configuration surface.
//
// # Overview
//
// Configuration is loaded from a YAML file, merged with defaults, overridden
// by TRAFFICWARD_* environment variables, and validated before use. The
// resulting Config value is immutable by convention: it is constructed once
// in the command layer and passed down to each component, which enables
// deterministic testing with synthetic configurations and fixed clocks.
//
// # Loading sequence
//
//  1. Read and parse the YAML file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
//
// # Environment variables
//
// Environment variables follow the naming convention TRAFFICWARD_SECTION_FIELD
// (e.g. TRAFFICWARD_LIMIT_GB, TRAFFICWARD_REPORT_HOUR) and always take
// precedence over file-based configuration.
package config
