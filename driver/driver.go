// Package driver registers the "slimsql" database/sql driver.
//
// Importing it for side effects is enough:
//
//	import (
//	    "database/sql"
//
//	    _ "github.com/SimonWaldherr/slimSQL/driver"
//	)
//
//	db, err := sql.Open("slimsql", "mem://")
//
// See the internal driver package for the supported DSN forms.
package driver

import (
	_ "github.com/SimonWaldherr/slimSQL/internal/driver"
)
