// Package hcl provides the concrete HCL implementation of config.Loader. It
// is responsible for file discovery, parsing node files into the config
// model and converting attribute values from cty into plain Go values.
package hcl
