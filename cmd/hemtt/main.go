// Package main is the hemtt command-line front end. It carries no
// business logic (spec §1's CLI is an external collaborator described
// only at its interface): every subcommand is a thin urfave/cli/v2
// Action wiring flags to the core packages (internal/build,
// internal/sqf/..., internal/config, internal/pbo, internal/paa).
// Grounded on the teacher's cmd/hemtt/main.go App/Commands/Action shape
// and its signal-handling pattern for long-running commands.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brettmayson/hemtt-core/internal/addon"
	"github.com/brettmayson/hemtt-core/internal/build"
	"github.com/brettmayson/hemtt-core/internal/config"
	"github.com/brettmayson/hemtt-core/internal/debug"
	"github.com/brettmayson/hemtt-core/internal/diag"
	"github.com/brettmayson/hemtt-core/internal/paa"
	"github.com/brettmayson/hemtt-core/internal/pbo"
	"github.com/brettmayson/hemtt-core/internal/preprocess"
	"github.com/brettmayson/hemtt-core/internal/sqf/analyze"
	"github.com/brettmayson/hemtt-core/internal/sqf/ast"
	lex "github.com/brettmayson/hemtt-core/internal/sqf/lexer"
	"github.com/brettmayson/hemtt-core/internal/sqf/optimizer"
	"github.com/brettmayson/hemtt-core/internal/sqf/sqfc"
	"github.com/brettmayson/hemtt-core/internal/version"
	"github.com/brettmayson/hemtt-core/internal/workspace"
)

func main() {
	app := &cli.App{
		Name:    "hemtt",
		Usage:   "Build, check, and package Arma mod addons",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "project root directory (defaults to the current directory)",
				Value: ".",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "write pipeline trace output to a log file under the temp directory",
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("debug") {
				return nil
			}
			path, err := debug.InitDebugLogFile()
			if err != nil {
				return fmt.Errorf("enabling debug logging: %w", err)
			}
			fmt.Fprintln(os.Stderr, "hemtt: debug trace at", path)
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			buildCommand(),
			checkCommand(),
			releaseCommand(),
			formatCommand(),
			inspectCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hemtt:", err)
		os.Exit(1)
	}
}

func projectRoot(c *cli.Context) (string, error) {
	return projectRootFromFlag(c.String("root"))
}

func projectRootFromFlag(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %q: %w", root, err)
	}
	return abs, nil
}

// newExecutor builds a Context+Executor pair for folder (the
// .hemttout subdirectory this run stages into) and runs Init+Check,
// matching every build-family command's shared prefix.
func newExecutor(root, folder string) (*build.Executor, *build.Context, error) {
	ctx, err := build.NewContext(root, folder, build.PreserveRemove)
	if err != nil {
		return nil, nil, err
	}
	exec := build.NewExecutor(ctx)
	if err := exec.Init(); err != nil {
		return nil, nil, err
	}
	if err := exec.Check(); err != nil {
		return nil, nil, err
	}
	return exec, ctx, nil
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build every addon's PBO",
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return err
			}
			exec, ctx, err := newExecutor(root, "build")
			if err != nil {
				return err
			}
			debug.LogBuild("packing %d addon(s) from %s", len(ctx.Addons), ctx.ProjectFolder)
			return exec.Build()
		},
	}
}

func releaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Build every addon and package a release archive",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-archive",
				Usage: "build release PBOs without zipping them",
			},
		},
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return err
			}
			exec, ctx, err := newExecutor(root, "release")
			if err != nil {
				return err
			}
			debug.LogBuild("packing %d addon(s) from %s", len(ctx.Addons), ctx.ProjectFolder)
			if err := exec.Build(); err != nil {
				return err
			}
			return exec.Release(!c.Bool("no-archive"))
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Rebuild on every source change until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "delay after the last detected change before rebuilding",
				Value: 250 * time.Millisecond,
			},
		},
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return err
			}
			exec, ctx, err := newExecutor(root, "build")
			if err != nil {
				return err
			}
			if err := exec.Build(); err != nil {
				return err
			}

			w, err := build.NewWatcher(exec, c.Duration("debounce"))
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			w.SetCallbacks(
				func() { fmt.Println("hemtt: change detected, rebuilding...") },
				func(err error) {
					if err != nil {
						fmt.Fprintln(os.Stderr, "hemtt: rebuild failed:", err)
						return
					}
					fmt.Println("hemtt: rebuild complete")
				},
			)
			if err := w.Start(ctx.ProjectFolder); err != nil {
				return fmt.Errorf("watching %s: %w", ctx.ProjectFolder, err)
			}
			defer w.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			fmt.Println("hemtt: watching for changes, press Ctrl+C to stop")
			<-sigCh
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Run static analysis lints over every addon's SQF source",
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return err
			}
			ctx, err := build.NewContext(root, "check", build.PreserveRemove)
			if err != nil {
				return err
			}

			report := diag.NewReport()
			processedByPath := make(map[string]*workspace.Processed)

			for i := range ctx.Addons {
				if err := checkAddon(ctx.ProjectFolder, &ctx.Addons[i], ctx.VFS, report, processedByPath); err != nil {
					return err
				}
			}

			resolve := func(path string, byteOffset int) (int, int, string) {
				proc, ok := processedByPath[path]
				if !ok {
					return 0, 0, ""
				}
				return proc.Line(byteOffset)
			}
			for _, d := range report.Diagnostics() {
				fmt.Println(d.Render(resolve))
			}

			counts := report.Counts()
			fmt.Printf("hemtt: %d error(s), %d warning(s)\n", counts[diag.SeverityError], counts[diag.SeverityWarning])
			if report.HasErrors() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func checkAddon(root string, a *addon.Addon, vfs *workspace.VFS, report *diag.Report, processedByPath map[string]*workspace.Processed) error {
	return filepath.Walk(a.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".sqf") {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		logical := filepath.ToSlash(rel)

		debug.LogPreprocess("preprocessing %s", logical)
		proc := preprocess.New(vfs)
		processed, ppReport, perr := proc.Run(workspace.New(logical))
		if perr != nil {
			return fmt.Errorf("preprocessing %s: %w", logical, perr)
		}
		if ppReport != nil {
			report.Merge(ppReport)
		}
		processedByPath[logical] = processed

		toks := lex.Lex(processed.Tokens)
		db := ast.NewDatabase()
		stmts, perr := ast.Parse(toks, processed.Text(), db, report)
		if perr != nil {
			return fmt.Errorf("parsing %s: %w", logical, perr)
		}
		stmts = optimizer.Optimize(stmts)

		diags := analyze.Run(stmts, db, analyze.DefaultLints())
		debug.LogAnalyze("%s: %d diagnostic(s)", logical, len(diags))
		for _, d := range diags {
			report.Push(d)
		}
		return nil
	})
}

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "Reformat config.cpp files to canonical style",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "report files that would change without writing them",
			},
		},
		Action: func(c *cli.Context) error {
			files := c.Args().Slice()
			if len(files) == 0 {
				root, err := projectRoot(c)
				if err != nil {
					return err
				}
				addons, err := addon.Discover(root)
				if err != nil {
					return err
				}
				for _, a := range addons {
					files = append(files, filepath.Join(a.FolderPath, "config.cpp"))
				}
			}

			changed := 0
			for _, f := range files {
				did, err := formatFile(f, c.Bool("check"))
				if err != nil {
					return err
				}
				if did {
					changed++
				}
			}
			if c.Bool("check") && changed > 0 {
				return cli.Exit(fmt.Sprintf("%d file(s) would be reformatted", changed), 1)
			}
			return nil
		},
	}
}

func formatFile(path string, checkOnly bool) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	vfs := workspace.NewVFS(workspace.Layer{Kind: workspace.LayerSource, Root: dir})

	proc := preprocess.New(vfs)
	processed, ppReport, err := proc.Run(workspace.New(name))
	if err != nil {
		return false, fmt.Errorf("preprocessing %s: %w", path, err)
	}
	if ppReport != nil && ppReport.HasErrors() {
		return false, fmt.Errorf("%s has preprocessor errors, skipping format", path)
	}

	debug.LogConfig("formatting %s", path)
	report := diag.NewReport()
	cfg, err := config.Parse(processed.Tokens, report)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	if report.HasErrors() {
		return false, fmt.Errorf("%s has parse errors, skipping format", path)
	}

	formatted := config.Print(cfg)
	if formatted == string(data) {
		return false, nil
	}
	if checkOnly {
		fmt.Println(path)
		return true, nil
	}
	return true, os.WriteFile(path, []byte(formatted), 0o644)
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print a summary of a built artifact (.pbo, .paa, .sqfc)",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("inspect requires exactly one file argument", 1)
			}
			path := c.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			switch strings.ToLower(filepath.Ext(path)) {
			case ".pbo":
				return inspectPBO(data)
			case ".paa":
				return inspectPAA(data)
			case ".sqfc":
				return inspectSQFC(data)
			default:
				return cli.Exit(fmt.Sprintf("unsupported file extension %q (expected .pbo, .paa, or .sqfc)", filepath.Ext(path)), 1)
			}
		},
	}
}

func inspectPBO(data []byte) error {
	arc, err := pbo.Unpack(data)
	if err != nil {
		return err
	}
	fmt.Println("properties:")
	for _, p := range arc.Properties {
		fmt.Printf("  %s = %s\n", p.Name, p.Value)
	}
	fmt.Printf("entries: %d\n", len(arc.Entries))
	for _, e := range arc.Entries {
		fmt.Printf("  %s (%d bytes)\n", e.Name, len(e.Data))
	}
	return nil
}

func inspectPAA(data []byte) error {
	h, err := paa.ReadHeaders(data)
	if err != nil {
		return err
	}
	for i, tex := range h.Textures {
		fmt.Printf("texture %d: format=%#x mipmaps=%d alpha=%v transparent=%v\n",
			i, tex.PaXFormat, len(tex.Mipmaps), tex.IsAlpha, tex.IsTransparent)
		for j, mm := range tex.Mipmaps {
			fmt.Printf("  mipmap %d: %dx%d compressed=%v\n", j, mm.Width, mm.Height, mm.Compressed)
		}
	}
	return nil
}

func inspectSQFC(data []byte) error {
	compiled, err := sqfc.Deserialize(data)
	if err != nil {
		return err
	}
	entry, ok := compiled.GetEntryPoint()
	if !ok {
		fmt.Println("no entry point")
		return nil
	}
	fmt.Printf("entry point: %d instructions\n", len(entry.Contents))
	return nil
}
