package models

import (
	"github.com/invopop/jsonschema"
)

// ScanReportSchema describes the fields of a scan report the gateway relies on.
// Backend reports carry more fields than these, so additional properties are allowed.
func ScanReportSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(&ScanReport{})
}
