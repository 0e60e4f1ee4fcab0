package app

import (
	"github.com/specialistvlad/expgrid/internal/definition"
	"github.com/specialistvlad/expgrid/internal/source"
)

func staticOne() source.Source {
	return source.Static("test", definition.New("one", "", definition.Fields{"executor": "noop"}))
}
