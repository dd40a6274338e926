// Package config loads the tool's HCL configuration file.
//
// A configuration looks like:
//
//	schema_version = "1.0"
//	targets        = ["debian"]
//	fallback_target = "debian"
//	rootfs         = "/"
//
//	metadata {
//	  url     = "https://metadata.platformequinix.com/metadata"
//	  format  = "packet"
//	  timeout = "30s"
//	}
//
//	state {
//	  enabled = true
//	}
//
// Every setting has a default, so an empty file is valid. A few settings
// can also be overridden from the environment; see ApplyEnv.
package config
