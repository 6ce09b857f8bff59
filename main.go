package main

import (
	"embed"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	app := NewApp()

	appMenu := menu.NewMenu()

	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("Open Log", keys.CmdOrCtrl("o"), func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:open-log")
	})
	fileMenu.AddText("Close Log", keys.CmdOrCtrl("w"), func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:close-log")
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Import Rules", keys.CmdOrCtrl("i"), func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:import-rules")
	})
	fileMenu.AddText("Export Rules", keys.Combo("e", keys.CmdOrCtrlKey, keys.ShiftKey), func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:export-rules")
	})
	fileMenu.AddText("Export CSV", keys.CmdOrCtrl("e"), func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:export-csv")
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(cd *menu.CallbackData) {
		runtime.Quit(app.ctx)
	})

	editMenu := appMenu.AddSubmenu("Edit")
	editMenu.AddText("Cut", keys.CmdOrCtrl("x"), nil)
	editMenu.AddText("Copy", keys.CmdOrCtrl("c"), nil)
	editMenu.AddText("Paste", keys.CmdOrCtrl("v"), nil)
	editMenu.AddText("Select All", keys.CmdOrCtrl("a"), nil)

	structureMenu := appMenu.AddSubmenu("Structure")
	structureMenu.AddText("Find Matches", keys.CmdOrCtrl("f"), func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:find-structures")
	})
	structureMenu.AddText("Clear", nil, func(cd *menu.CallbackData) {
		runtime.EventsEmit(app.ctx, "menu:clear-structure")
	})

	err := wails.Run(&options.App{
		Title:  "logweave v" + Version + " - Log Classification and Structure Search",
		Width:  1400,
		Height: 900,
		Menu:   appMenu,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
