package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"strings"

	"veil/pkg"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Redact the values of selected properties in JSON documents while leaving everything else untouched.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: veil [flags] [file ...]\n\n")
		fmt.Fprintf(os.Stderr, "Without file arguments input is read from stdin and written to stdout.\n")
		fmt.Fprintf(os.Stderr, "With file arguments each file is obfuscated into <file><suffix>.\n\n")
		flag.PrintDefaults()
	}

	props := flag.String("props", "", "Comma-separated property names to obfuscate")
	caseInsensitive := flag.Bool("ci", false, "Match property names case-insensitively")
	objMode := flag.String("obj-mode", "obfuscate", "Mode for object values (obfuscate, exclude, inherit, inherit-overridable)")
	arrMode := flag.String("arr-mode", "obfuscate", "Mode for array values (obfuscate, exclude, inherit, inherit-overridable)")
	mask := flag.String("mask", "fixed", "Masking style (fixed, value, realistic)")
	maskLen := flag.Int("len", 3, "Mask length for the fixed style")
	maskValue := flag.String("value", "***", "Replacement text for the value style")
	deterministic := flag.Bool("deterministic", false, "Make realistic masking deterministic with a random salt")
	compact := flag.Bool("compact", false, "Emit compact instead of pretty-printed JSON")
	validJSON := flag.Bool("valid-json", false, "Keep redacted output syntactically valid JSON")
	warning := flag.String("warning", pkg.DefaultMalformedJSONWarning, "Warning appended when input is not valid JSON")
	noWarning := flag.Bool("no-warning", false, "Do not append a warning on invalid JSON")
	inputFile := flag.String("in", "", "Input file path (default: stdin)")
	outputFile := flag.String("out", "", "Output file path (default: stdout)")
	suffix := flag.String("suffix", ".obfuscated", "Output suffix for batch mode")
	workers := flag.Int("workers", 4, "Concurrent workers in batch mode")
	progress := flag.Bool("progress", false, "Show a progress bar for file input")
	flag.Parse()

	obfuscator, err := buildObfuscator(*mask, *maskLen, *maskValue, *deterministic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	builder := pkg.NewBuilder().
		WithPrettyPrinting(!*compact).
		ProduceValidJSON(*validJSON)
	if *noWarning {
		builder.WithoutMalformedJSONWarning()
	} else {
		builder.WithMalformedJSONWarning(*warning)
	}

	objectMode, err := parseMode(*objMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	arrayMode, err := parseMode(*arrMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := []pkg.PropertyOption{pkg.ForObjects(objectMode), pkg.ForArrays(arrayMode)}
	if *caseInsensitive {
		opts = append(opts, pkg.CaseInsensitive())
	}
	for _, name := range strings.Split(*props, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			builder.WithProperty(name, obfuscator, opts...)
		}
	}

	jsonObfuscator, err := builder.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := pkg.NewApp(jsonObfuscator)
	app.ShowProgress = *progress

	files := flag.Args()
	if len(files) > 0 {
		app.ShowProgress = false // bars from concurrent workers interleave
		failed := false
		for _, res := range app.RunBatch(files, *suffix, *workers) {
			if res.Err != nil {
				fmt.Fprintln(os.Stderr, res.Err)
				failed = true
				continue
			}
			fmt.Printf("Obfuscated %s into %s\n", res.Input, res.Output)
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	if err := app.Run(*inputFile, *outputFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *outputFile != "" {
		fmt.Printf("Successfully obfuscated input and saved to %s\n", *outputFile)
	}
}

func buildObfuscator(mask string, length int, value string, deterministic bool) (pkg.Obfuscator, error) {
	switch mask {
	case "fixed":
		if length < 0 {
			return nil, fmt.Errorf("mask length cannot be negative: %d", length)
		}
		return pkg.FixedLength(length), nil
	case "value":
		return pkg.FixedValue(value), nil
	case "realistic":
		if deterministic {
			salt := make([]byte, 32)
			if _, err := rand.Read(salt); err != nil {
				return nil, fmt.Errorf("failed to generate random salt: %w", err)
			}
			return pkg.NewRealistic(pkg.Hashed(salt)), nil
		}
		return pkg.NewRealistic(pkg.Random()), nil
	default:
		return nil, fmt.Errorf("unsupported masking style: %s", mask)
	}
}

func parseMode(s string) (pkg.ObfuscationMode, error) {
	switch s {
	case "obfuscate":
		return pkg.ModeObfuscate, nil
	case "exclude":
		return pkg.ModeExclude, nil
	case "inherit":
		return pkg.ModeInherit, nil
	case "inherit-overridable":
		return pkg.ModeInheritOverridable, nil
	default:
		return 0, fmt.Errorf("unsupported obfuscation mode: %s", s)
	}
}
