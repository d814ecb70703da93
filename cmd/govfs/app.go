package main

import (
	"context"
	"fmt"

	"github.com/desertwitch/govfs"
	"github.com/desertwitch/govfs/internal/ui"
	"github.com/desertwitch/govfs/locator"
	"github.com/desertwitch/govfs/transfer"
)

type App struct {
	command string
	args    []string

	workers    int
	allowOther bool

	vfs       *govfs.Filesystem
	table     *locator.Table
	transfers *transfer.Handler
	uiHandler *ui.Handler
}

func NewApp(command string, args []string,
	workers int,
	allowOther bool,
	vfs *govfs.Filesystem,
	table *locator.Table,
	transfers *transfer.Handler,
	uiHandler *ui.Handler,
) *App {
	return &App{
		command:    command,
		args:       args,
		workers:    workers,
		allowOther: allowOther,
		vfs:        vfs,
		table:      table,
		transfers:  transfers,
		uiHandler:  uiHandler,
	}
}

func (app *App) Launch(ctx context.Context) error {
	var err error

	switch app.command {
	case "ls":
		err = app.List(ctx)
	case "stat":
		err = app.Stat(ctx)
	case "cat":
		err = app.Cat(ctx)
	case "touch":
		err = app.Touch(ctx)
	case "mkdir":
		err = app.Mkdir(ctx)
	case "rmdir":
		err = app.Rmdir(ctx)
	case "rm":
		err = app.Remove(ctx)
	case "cp":
		err = app.Copy(ctx)
	case "mv":
		err = app.Move(ctx)
	case "mount":
		err = app.Mount(ctx)
	default:
		err = fmt.Errorf("%w: unknown command %q", ErrUsage, app.command)
	}

	if err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	return nil
}

func (app *App) LaunchUI() error {
	if err := app.uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}

// identifierArgs parses the command's arguments into identifiers, insisting
// on an exact argument count.
func (app *App) identifierArgs(want int) ([]govfs.Identifier, error) {
	if len(app.args) != want {
		return nil, fmt.Errorf("%w: %q expects %d argument(s)", ErrUsage, app.command, want)
	}

	ids := make([]govfs.Identifier, 0, len(app.args))
	for _, arg := range app.args {
		id, err := govfs.ParseIdentifier(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUsage, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
