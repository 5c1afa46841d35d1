package pkg

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// App wires a JSONObfuscator to files or standard streams.
type App struct {
	Obfuscator   *JSONObfuscator
	In           io.Reader
	Out          io.Writer
	ShowProgress bool
}

func NewApp(obfuscator *JSONObfuscator) *App {
	return &App{
		Obfuscator: obfuscator,
		In:         os.Stdin,
		Out:        os.Stdout,
	}
}

// Run obfuscates a single document. Empty paths mean the app's default
// streams; file input gets a progress bar when enabled.
func (a *App) Run(inputFile, outputFile string) error {
	var reader io.Reader = a.In

	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("error opening input file: %w", err)
		}
		defer f.Close()
		reader = f

		if a.ShowProgress {
			if info, err := f.Stat(); err == nil {
				bar := progressbar.DefaultBytes(info.Size(), "obfuscating")
				reader = io.TeeReader(f, bar)
			}
		}
	}

	var writer io.Writer = a.Out

	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	return a.Obfuscator.Obfuscate(reader, writer)
}
