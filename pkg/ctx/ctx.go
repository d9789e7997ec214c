package ctx

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context carries the shared process-wide handles: the relational
// store and the logger. It is constructed once at startup and passed
// into every repo and logic constructor; no package keeps its own
// global copy.
type Context struct {
	DB  *gorm.DB
	Ctx context.Context
	Log *zap.SugaredLogger
}

func NewContext(ctx context.Context, db *gorm.DB, log *zap.SugaredLogger) *Context {
	return &Context{
		DB:  db,
		Ctx: ctx,
		Log: log,
	}
}

func (c *Context) GetCtx() context.Context {
	return c.Ctx
}

func (c *Context) GetDB() *gorm.DB {
	return c.DB
}
