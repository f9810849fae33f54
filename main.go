// Command chisel evaluates a brush scene, written as a script or a YAML
// document, into triangle meshes and optionally exports them as STL.
//
//	chisel [flags] scene.chisel|scene.yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/chazu/chisel/internal/config"
	"github.com/chazu/chisel/internal/logger"
)

func main() {
	config.ParseFlags()
	os.Exit(run(config.Args(), os.Stdout))
}

func run(args []string, out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chisel: %v\n", err)
		return 2
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "chisel: %v\n", err)
		return 2
	}
	defer logger.Sync()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: chisel [flags] <scene.chisel|scene.yaml>")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := NewApp(cfg, logger.Log)
	result, err := app.EvaluateFile(ctx, args[0])
	if err != nil {
		logger.Log.Error("load failed", zap.String("path", args[0]), zap.Error(err))
		return 1
	}
	report(out, args[0], result)
	if len(result.Errors) > 0 {
		return 1
	}

	if cfg.Output.STL != "" {
		if err := app.Export(result, cfg.Output.STL); err != nil {
			logger.Log.Error("export failed", zap.String("path", cfg.Output.STL), zap.Error(err))
			return 1
		}
		logger.Log.Info("exported", zap.String("path", cfg.Output.STL))
	}
	return 0
}

// report prints a human readable summary of result.
func report(w io.Writer, path string, result EvalResult) {
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "%s:%d:%d: error: %s\n", path, e.Line, e.Col, e.Message)
		} else {
			fmt.Fprintf(w, "%s: error: %s\n", path, e.Message)
		}
	}
	for _, wn := range result.Warnings {
		fmt.Fprintf(w, "%s: warning: %s\n", path, wn.Message)
	}
	if len(result.Errors) > 0 {
		return
	}
	fmt.Fprintf(w, "%s: %d nodes, %d brushes, %d meshes\n", path, result.Nodes, result.Brushes, len(result.Meshes))
	for _, m := range result.Meshes {
		fmt.Fprintf(w, "  %-20s %6d triangles\n", m.Name, len(m.Indices)/3)
	}
}
