package app

import (
	"github.com/specialistvlad/expgrid/internal/registry"
	"github.com/specialistvlad/expgrid/modules/command"
	"github.com/specialistvlad/expgrid/modules/envsnapshot"
	"github.com/specialistvlad/expgrid/modules/print"
	"github.com/specialistvlad/expgrid/modules/resultfile"
	"github.com/specialistvlad/expgrid/modules/s3"
	"github.com/specialistvlad/expgrid/modules/socketio"
	"github.com/specialistvlad/expgrid/modules/webhook"
)

// coreModules is the definitive list of all modules that are compiled into
// the expgrid binary.
func coreModules() []registry.Module {
	return []registry.Module{
		&command.Module{},
		&envsnapshot.Module{},
		&print.Module{},
		&resultfile.Module{},
		&s3.Module{},
		&socketio.Module{},
		&webhook.Module{},
	}
}
