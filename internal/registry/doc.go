// Package registry is the job-type catalog consulted by the compiler.
//
// A Definition maps a type tag ("Data_Oracle", "Command", ...) to the
// engine-native job shape: its engine type string, required and optional
// fields, and defaults. Definition.New is the constructor; it returns a Job
// carrying the merged, validated fields.
//
// The built-in catalog is embedded YAML. Additional catalogs can be loaded
// from YAML files and override built-in entries with the same tag.
package registry
