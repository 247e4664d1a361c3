package commands

import (
	"github.com/i474232898/route-command-engine/internal/command"
	"github.com/i474232898/route-command-engine/internal/future"
	"github.com/i474232898/route-command-engine/internal/route"
)

// ClearRoute removes every waypoint.
type ClearRoute struct {
	*base
}

var _ command.Command = (*ClearRoute)(nil)

func NewClearRoute(r *route.Route) (*ClearRoute, error) {
	b, err := newBase(r, nil)
	if err != nil {
		return nil, err
	}
	return &ClearRoute{base: b}, nil
}

func (c *ClearRoute) Description() string { return "clear route" }

func (c *ClearRoute) Execute() *future.Future { return c.forward(c.clear) }

func (c *ClearRoute) Redo() *future.Future { return c.forward(c.clear) }

func (c *ClearRoute) Undo() *future.Future {
	return c.backward(func() *future.Future {
		return settled(c.restoreAll())
	})
}

func (c *ClearRoute) clear() *future.Future {
	c.begin()
	return settled(c.route.Reset(nil))
}
