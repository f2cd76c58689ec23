package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/monitor"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
)

type keyBind struct {
	viewname string
	key      interface{}
	mod      gocui.Modifier
	handler  func(*gocui.Gui, *gocui.View) error
}

type monitorApp struct {
	g      *gocui.Gui
	link   *link
	ctx    context.Context
	cancel context.CancelFunc
	status string
}

func newMonitorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Terminal view of the latest value of every command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The terminal belongs to gocui. Components copy log.Logger when built.
			log.Logger = log.Logger.Level(zerolog.Disabled)

			conn, err := dial(ctx, cfg.Transport)
			if err != nil {
				return err
			}
			l, err := buildLink(cfg, conn)
			if err != nil {
				_ = conn.Close()
				return err
			}
			defer l.close()

			app := &monitorApp{link: l}
			app.ctx, app.cancel = context.WithCancel(ctx)
			return app.run()
		},
	}
}

func (app *monitorApp) run() error {
	var err error
	app.g, err = gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer app.g.Close()

	app.g.SetManagerFunc(app.layout)
	if err := app.bindings(); err != nil {
		return err
	}
	app.link.tracker.OnChange(app.redraw)

	linkErr := make(chan error, 1)
	go func() {
		err := app.link.run(app.ctx)
		app.g.Update(func(*gocui.Gui) error {
			if err != nil {
				app.status = "link closed: " + err.Error()
			} else {
				app.status = "link closed"
			}
			return nil
		})
		app.redraw()
		linkErr <- err
	}()
	go app.send("common.Common.AllStates")

	if err := app.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		app.cancel()
		return err
	}
	app.cancel()
	select {
	case err := <-linkErr:
		return err
	case <-time.After(2 * time.Second):
		return nil
	}
}

func (app *monitorApp) bindings() error {
	bindings := []keyBind{
		{"", gocui.KeyCtrlC, gocui.ModNone, app.quit},
		{"", 'q', gocui.ModNone, app.quit},
		{"", 't', gocui.ModNone, app.command("ardrone3.Piloting.TakeOff")},
		{"", 'l', gocui.ModNone, app.command("ardrone3.Piloting.Landing")},
		{"", 'e', gocui.ModNone, app.command("ardrone3.Piloting.Emergency")},
		{"", 'a', gocui.ModNone, app.command("common.Common.AllStates")},
	}
	for _, b := range bindings {
		if err := app.g.SetKeybinding(b.viewname, b.key, b.mod, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (app *monitorApp) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	if v, err := g.SetView("state", 0, 0, maxX*3/5-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "commands"
		v.Frame = true
	}
	if v, err := g.SetView("log", maxX*3/5, 0, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "frames"
		v.Frame = true
	}
	if v, err := g.SetView("status", 0, maxY-2, maxX-1, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
	}
	return nil
}

func (app *monitorApp) redraw() {
	tracker := app.link.tracker
	app.g.Update(func(gui *gocui.Gui) error {
		if v, err := gui.View("state"); err == nil {
			v.Clear()
			for _, e := range tracker.Entries() {
				fmt.Fprintln(v, formatEntry(e))
			}
		}
		if v, err := gui.View("log"); err == nil {
			v.Clear()
			_, size := v.Size()
			for _, l := range tracker.Lines(size) {
				fmt.Fprintln(v, l)
			}
		}
		if v, err := gui.View("status"); err == nil {
			v.Clear()
			fmt.Fprintf(v, "errors: %d  [t]akeoff [l]and [e]mergency [a]ll states [q]uit  %s",
				tracker.Errors(), app.status)
		}
		return nil
	})
}

func formatEntry(e monitor.Entry) string {
	return fmt.Sprintf("%-8s %5d  %s", e.Key, e.Count, e.Text)
}

func (app *monitorApp) command(name string) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		go app.send(name)
		return nil
	}
}

// send runs off the UI goroutine since acknowledged sends block.
func (app *monitorApp) send(name string) {
	cmd, err := frame.BuildFromText(app.link.table, name, nil)
	if err == nil {
		err = app.link.session.Send(app.ctx, cmd, false)
	}
	app.g.Update(func(*gocui.Gui) error {
		if err != nil {
			app.status = name + ": " + err.Error()
		} else {
			app.status = name + " sent"
		}
		return nil
	})
	app.redraw()
}

func (app *monitorApp) quit(*gocui.Gui, *gocui.View) error {
	if app.cancel != nil {
		app.cancel()
	}
	return gocui.ErrQuit
}
