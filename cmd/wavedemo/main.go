// cmd/wavedemo/main.go
//
// wavedemo - Interactive REPL for the WAVE document engine.
//
// Usage:
//
//	wavedemo [--snapshot FILE] [--config FILE]
//
// If --snapshot names an existing file, the document is restored from
// it at startup. Use "help" for available commands.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/wavecollab/wave/pkg/config"
	"github.com/wavecollab/wave/pkg/model"
	"github.com/wavecollab/wave/pkg/textmodel"
	"github.com/wavecollab/wave/pkg/waveapp"
)

func main() {
	snapshotPath := flag.StringP("snapshot", "s", "", "snapshot file to restore from and save to")
	configPath := flag.StringP("config", "c", "", "JWCC engine config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	config.Apply(cfg)

	repl, err := newREPL(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening document: %v\n", err)
		os.Exit(1)
	}
	defer repl.Close()

	repl.Run()
}

// newRegistry builds a Registry with the Text class registered.
// textmodel.Register wires the Chron/Markup coders Text's slots need,
// and model.RegisterCoder wires the Text ModelRecord shell itself —
// together they let pkg/snapshot save and load a document in full,
// chron log, markers, and all.
func newRegistry() *waveapp.Registry {
	reg := waveapp.NewRegistry()
	textmodel.Register(reg)
	model.RegisterCoder(textmodel.ClassName)
	return reg
}
