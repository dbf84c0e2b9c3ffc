// Package templates blank-imports every job template so that their init()
// registrations run as a side effect of importing this one package — the
// Go equivalent of the original demo discovering templates by directory
// listing at "templates/" (Go has no runtime package discovery, so the set
// of templates is a compile-time list here instead).
package templates

import (
	_ "github.com/reproducible-reporting/parman/templates/boot"
	_ "github.com/reproducible-reporting/parman/templates/compute"
	_ "github.com/reproducible-reporting/parman/templates/sample"
	_ "github.com/reproducible-reporting/parman/templates/train"
)
