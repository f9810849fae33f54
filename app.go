package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/chisel/internal/config"
	"github.com/chazu/chisel/pkg/csg"
	"github.com/chazu/chisel/pkg/engine"
	"github.com/chazu/chisel/pkg/kernel"
	"github.com/chazu/chisel/pkg/kernel/sdfx"
	"github.com/chazu/chisel/pkg/scene"
	"github.com/chazu/chisel/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs the modeling pipeline: scene source to document, document to
// CSG tree, tree to meshes.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	kernel *sdfx.SdfxKernel
	log    *zap.Logger
}

// MeshData is one evaluated mesh with its display color.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is an error or warning with its source position, when known.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Nodes    int             `json:"nodes"`
	Brushes  int             `json:"brushes"`
}

// NewApp creates an App from cfg. A nil cfg uses the defaults.
func NewApp(cfg *config.Config, log *zap.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		engine: engine.NewEngine(engine.WithTimeout(cfg.Eval.Timeout), engine.WithLogger(log.Named("engine"))),
		kernel: sdfx.New(sdfx.WithCells(cfg.Mesher.Cells)),
		log:    log,
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

func (r *EvalResult) fail(format string, args ...any) EvalResult {
	r.Errors = append(r.Errors, EvalErrorData{Message: fmt.Sprintf(format, args...)})
	return *r
}

// Evaluate takes scene script source and returns mesh data plus errors.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := newResult()

	// Step 1: Evaluate the script into a validated document.
	checked := a.engine.Check(source)
	if checked.Err != nil {
		a.log.Warn("evaluate failed", zap.Error(checked.Err))
		return result.fail("%s", checked.Err)
	}
	for _, e := range checked.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if len(result.Errors) > 0 {
		return result
	}
	return a.build(ctx, checked.Document, result)
}

// EvaluateDocument runs an already loaded document through the pipeline.
func (a *App) EvaluateDocument(ctx context.Context, d *scene.Document) EvalResult {
	result := newResult()
	for _, f := range scene.Validate(d) {
		if f.Severity == scene.SeverityError {
			result.Errors = append(result.Errors, EvalErrorData{Message: f.Error()})
		}
	}
	if len(result.Errors) > 0 {
		return result
	}
	return a.build(ctx, d, result)
}

// EvaluateFile loads path as a YAML scene when it has a .yaml or .yml
// extension and as a scene script otherwise.
func (a *App) EvaluateFile(ctx context.Context, path string) (EvalResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		d, err := scene.Load(path)
		if err != nil {
			return EvalResult{}, err
		}
		return a.EvaluateDocument(ctx, d), nil
	default:
		src, err := os.ReadFile(path)
		if err != nil {
			return EvalResult{}, fmt.Errorf("read %s: %w", path, err)
		}
		return a.Evaluate(ctx, string(src)), nil
	}
}

// build turns a valid document into meshes.
func (a *App) build(ctx context.Context, d *scene.Document, result EvalResult) EvalResult {
	result.Nodes = d.NodeCount()

	// Step 2: Generate the shapes and assemble the CSG tree.
	built, err := scene.Build(ctx, d, scene.Options{
		Workers: a.cfg.Generation.Workers,
		Logger:  a.log.Named("scene"),
	})
	if err != nil {
		return result.fail("build failed: %s", err)
	}
	result.Brushes = built.Brushes
	for _, w := range built.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
	}

	// Step 3: Evaluate the tree into one mesh per top-level node.
	names := make(map[csg.NodeID]string, len(built.Nodes))
	for sid, cid := range built.Nodes {
		if n := d.Get(sid); n != nil {
			names[cid] = n.Label()
		}
	}
	snap := built.Tree.BeginEvaluation()
	meshes, err := tessellate.Tessellate(ctx, snap, built.Registry, a.kernel, tessellate.Options{
		Workers: a.cfg.Mesher.Workers,
		Logger:  a.log.Named("tessellate"),
		Name: func(n csg.SnapshotNode) string {
			if name, ok := names[n.ID]; ok {
				return name
			}
			return fmt.Sprintf("node %d", n.UserID)
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result.fail("evaluation cancelled: %s", err)
		}
		return result.fail("tessellation failed: %s", err)
	}
	if err := built.Tree.CompleteEvaluation(snap); err != nil {
		return result.fail("complete evaluation: %s", err)
	}

	// Step 4: Convert kernel meshes to MeshData.
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	a.log.Info("evaluated",
		zap.Int("nodes", result.Nodes),
		zap.Int("brushes", result.Brushes),
		zap.Int("meshes", len(result.Meshes)),
		zap.Int("warnings", len(result.Warnings)))
	return result
}

// Export writes the meshes of result to an STL file.
func (a *App) Export(result EvalResult, path string) error {
	meshes := make([]*kernel.Mesh, 0, len(result.Meshes))
	for _, m := range result.Meshes {
		meshes = append(meshes, &kernel.Mesh{Vertices: m.Vertices, Normals: m.Normals, Indices: m.Indices, Name: m.Name})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return sdfx.SaveSTL(path, meshes...)
}
