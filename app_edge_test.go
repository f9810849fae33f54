package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// 1. Empty editor: empty string -> 0 meshes, 0 errors.
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), "")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for empty source, got %d", len(result.Errors))
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected 0 warnings for empty source, got %d", len(result.Warnings))
	}
	// Slices stay non-nil so JSON output carries [] instead of null.
	if result.Meshes == nil || result.Errors == nil || result.Warnings == nil {
		t.Error("result slices should be non-nil")
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax errors: unmatched parens -> eval error, 0 meshes.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp()

	// Valid code on line 1, broken code on line 2 so line info is meaningful.
	result := app.Evaluate(context.Background(), "(+ 1 2)\n(brush \"test\"")

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

func TestE2ESyntaxErrorSingleLineMissingParen(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), "(+ 1 2")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for missing closing paren")
	}
	if result.Errors[0].Message == "" {
		t.Error("error message should not be empty")
	}
}

// ---------------------------------------------------------------------------
// 3. Undefined node reference -> eval error naming the node.
// ---------------------------------------------------------------------------

func TestE2EUndefinedNodeReference(t *testing.T) {
	app := newTestApp()

	source := `
(brush "shelf" (box :size (vec3 0.6 0.1 0.3)))
(branch "unit" (node "nonexistent"))
`
	result := app.Evaluate(context.Background(), source)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for undefined node reference")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e.Message, "nonexistent") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected error mentioning 'nonexistent', got: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestE2ESharedNodeRejected(t *testing.T) {
	app := newTestApp()

	source := `
(def post (brush "post" (box)))
(branch "a" post)
(branch "b" post)
`
	result := app.Evaluate(context.Background(), source)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a node with two parents")
	}
	if !strings.Contains(result.Errors[0].Message, "parents") {
		t.Errorf("unexpected error: %v", result.Errors)
	}
}

func TestE2EBrushMissingShape(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), `(brush "oops")`)
	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for brush with no shape")
	}
}

// ---------------------------------------------------------------------------
// 4. Degenerate shapes: clamped into a valid mesh with a warning.
// ---------------------------------------------------------------------------

// hasWarning reports whether any warning message contains substr.
func hasWarning(r EvalResult, substr string) bool {
	for _, w := range r.Warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

func TestE2EDegenerateShapeWarns(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), `(brush "speck" (sphere :diameter 0.001))`)

	requireNoErrors(t, result)
	if !hasWarning(result, "clamped") {
		t.Errorf("expected a clamp warning for a tiny sphere, got %v", result.Warnings)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh for a clamped sphere, got %d", len(result.Meshes))
	}
	if result.Brushes != 1 {
		t.Errorf("expected 1 brush, got %d", result.Brushes)
	}
}

func TestE2EInvertedBoxExtent(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), `(brush "backwards" (box :min (vec3 1 1 1) :max (vec3 0 0 0)))`)

	requireNoErrors(t, result)
	if len(result.Meshes) != 1 {
		t.Fatalf("expected the box to be repaired into 1 mesh, got %d", len(result.Meshes))
	}
	if !hasWarning(result, "bounds were reversed") {
		t.Errorf("expected a reversed bounds warning, got %v", result.Warnings)
	}
	if n := len(result.Meshes[0].Indices) / 3; n == 0 {
		t.Error("repaired box has no triangles")
	}
}

func TestE2EPassthroughTransformWarns(t *testing.T) {
	app := newTestApp()
	source := `
(def cut (brush "cut" (box) :op :subtractive))
(branch "holder" (brush "block" (box :size (vec3 2 2 2))) (passthrough "group" cut :at (vec3 1 0 0)))
`
	result := app.Evaluate(context.Background(), source)
	requireNoErrors(t, result)
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w.Message, "transform is ignored") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected passthrough transform warning, got %v", result.Warnings)
	}
}

// ---------------------------------------------------------------------------
// 5. Rapid evaluation: no panics across alternating good and bad input.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluation(t *testing.T) {
	app := newTestApp()

	sources := []string{
		`(brush "a" (box))`,
		`(brush "b" (cylinder :diameter 1 :height 2))`,
		`(+ 1 2)`,
		``,
		`(brush "c" (sphere :diameter 1))`,
		`(brush "d" (capsule))`,
		`(+ 100 200)`,
		``,
		`(brush "e" (torus))`,
		`(brush "f" (stairs))`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked: %v", i, r)
				}
			}()
			_ = app.Evaluate(context.Background(), source)
		}()
	}
}

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := newTestApp()

	sources := []string{
		`(brush "ok" (box))`,
		`(brush "broken"`,
		``,
		`(node "missing")`,
		`(brush "also-ok" (box :size (vec3 2 1 1)))`,
		`(+ 1 2)`,
		`;; just a comment`,
		`(brush "fine" (sphere))`,
		`(undefined-func 1 2 3)`,
		`(brush "last" (box))`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Evaluate(context.Background(), source)
		}()
	}
}

// ---------------------------------------------------------------------------
// 6. Large dimensions: valid mesh without crash.
// ---------------------------------------------------------------------------

func TestE2ELargeDimensions(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), `(brush "huge" (box :size (vec3 1000 20 1000)))`)
	requireNoErrors(t, result)

	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh for large box, got %d", len(result.Meshes))
	}
	if len(result.Meshes[0].Vertices) == 0 {
		t.Error("large box mesh should have vertices")
	}
	if result.Meshes[0].Name != "huge" {
		t.Errorf("expected mesh name 'huge', got %q", result.Meshes[0].Name)
	}
}

// ---------------------------------------------------------------------------
// 7. Operations and multiple roots.
// ---------------------------------------------------------------------------

func TestE2EMultipleRoots(t *testing.T) {
	app := newTestApp()

	source := `
(def a (branch "unit-a" (brush "shelf-a" (box :size (vec3 0.6 0.2 0.3)))))
(def b (branch "unit-b" (brush "shelf-b" (box :size (vec3 0.4 0.2 0.2))) :at (vec3 1 0 0)))
(scene a b)
`
	result := app.Evaluate(context.Background(), source)
	requireNoErrors(t, result)

	if got := strings.Join(meshNames(result), ","); got != "unit-a,unit-b" {
		t.Fatalf("expected meshes unit-a,unit-b, got %s", got)
	}
}

func TestE2ESubtractiveOnlyBranch(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), `(branch "hole" (brush "cut" (box) :op :subtractive))`)
	requireNoErrors(t, result)

	// Subtracting from empty space leaves nothing.
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes, got %d", len(result.Meshes))
	}
}

func TestE2EIntersectingBranch(t *testing.T) {
	app := newTestApp()
	source := `
(branch "rounded"
  (brush "block" (box :size (vec3 1 1 1)))
  (brush "ball" (sphere :diameter 1.3) :op :intersecting))
`
	result := app.Evaluate(context.Background(), source)
	requireNoErrors(t, result)
	if len(result.Meshes) != 1 || len(result.Meshes[0].Vertices) == 0 {
		t.Fatalf("expected one non-empty mesh, got %d", len(result.Meshes))
	}
}

func TestE2EEmptyBranch(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), `(branch "empty")`)

	// Should not panic. May produce 0 meshes or an error; both are acceptable.
	if len(result.Errors) > 0 {
		t.Logf("empty branch produced error (acceptable): %s", result.Errors[0].Message)
		return
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty branch, got %d", len(result.Meshes))
	}
}

// ---------------------------------------------------------------------------
// 8. Comments and whitespace: 0 meshes, 0 errors.
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp()

	source := `
;; This is a comment
;; Another comment
; And another
`
	result := app.Evaluate(context.Background(), source)

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for comments-only source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for comments-only source, got %d", len(result.Meshes))
	}
}

func TestE2EWhitespaceOnly(t *testing.T) {
	app := newTestApp()
	result := app.Evaluate(context.Background(), "   \n\t\n   \n")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for whitespace-only source, got %d", len(result.Errors))
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for whitespace-only source, got %d", len(result.Meshes))
	}
}

// ---------------------------------------------------------------------------
// 9. Arithmetic in definitions.
// ---------------------------------------------------------------------------

func TestE2ENestedArithmeticDef(t *testing.T) {
	app := newTestApp()

	source := `
(def w (* 2 0.75))
(brush "wide-shelf" (box :size (vec3 w 0.2 0.4)))
`
	result := app.Evaluate(context.Background(), source)
	requireNoErrors(t, result)

	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	if result.Meshes[0].Name != "wide-shelf" {
		t.Errorf("expected mesh name 'wide-shelf', got %q", result.Meshes[0].Name)
	}
}

func TestE2EComplexArithmeticExpressions(t *testing.T) {
	app := newTestApp()

	source := `
(def base-length 4)
(def margin 0.25)
(def inner-length (- base-length (* 2 margin)))
(def thickness 0.2)

(brush "inner-panel" (box :size (vec3 inner-length thickness 2)))
`
	result := app.Evaluate(context.Background(), source)
	requireNoErrors(t, result)

	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
}

// ---------------------------------------------------------------------------
// 10. Files, cancellation and colors.
// ---------------------------------------------------------------------------

func TestE2EEvaluateFileMissing(t *testing.T) {
	app := newTestApp()
	for _, name := range []string{"missing.chisel", "missing.yaml"} {
		if _, err := app.EvaluateFile(context.Background(), filepath.Join(t.TempDir(), name)); err == nil {
			t.Errorf("expected error for %s", name)
		}
	}
}

func TestE2EEvaluateFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("nodes:\n  - kind: [nope\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := newTestApp().EvaluateFile(context.Background(), path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestE2EEvaluateFileInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	doc := "nodes:\n  - name: b\n    kind: brush\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	result, err := newTestApp().EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected a validation error for a brush without a shape")
	}
}

func TestE2ECancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := newTestApp().Evaluate(ctx, `(brush "a" (box))`)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a cancelled evaluation")
	}
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	app := newTestApp()

	// More meshes than the palette has colors.
	var b strings.Builder
	for i := 1; i <= 9; i++ {
		fmt.Fprintf(&b, "(brush \"p%d\" (box) :at (vec3 %d 0 0))\n", i, 2*i)
	}
	result := app.Evaluate(context.Background(), b.String())
	requireNoErrors(t, result)

	if len(result.Meshes) != 9 {
		t.Fatalf("expected 9 meshes, got %d", len(result.Meshes))
	}
	for _, m := range result.Meshes {
		if m.Color == "" {
			t.Errorf("mesh %q should have a color assigned (palette wrapping)", m.Name)
		}
	}
	if result.Meshes[0].Color != result.Meshes[8].Color {
		t.Error("palette should wrap after 8 colors")
	}
}
