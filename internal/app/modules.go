package app

import (
	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/modules/counter"
	"github.com/specialistvlad/modgrid/modules/env_vars"
	"github.com/specialistvlad/modgrid/modules/print"
)

// coreModules is the definitive list of all module types that are compiled
// into the modgrid binary.
var coreModules = []registry.Module{
	&counter.Module{},
	&env_vars.Module{},
	&print.Module{},
}
