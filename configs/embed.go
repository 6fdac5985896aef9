// Package configs embeds configuration templates for segdex.
//
// The templates are used by `segdex config init --project`, which writes
// ProjectConfigTemplate to .segdex.yaml in the working directory. Every
// value in a template equals the built-in default, so writing one changes
// nothing until it is edited.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented template for .segdex.yaml.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
