package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Exercises the compiler end-to-end (tokenize, parse, typecheck, lower, codegen)
// against a small in-repo fixture and checks the generated VM text directly.
func TestJackCompilerSingleClass(t *testing.T) {
	dir := t.TempDir()
	source := strings.Join([]string{
		"class Main {",
		"    function void main() {",
		"        do Output.printInt(42);",
		"        return;",
		"    }",
		"}",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "Main.jack"), []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	options := map[string]string{"stdlib": "true", "typecheck": "true"}
	if status := Handler([]string{dir}, options); status != 0 {
		t.Fatalf("unexpected exit status: expected 0 got %d", status)
	}

	compiled, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("failed to read compiled output: %v", err)
	}

	expected := strings.Join([]string{
		"function Main.main 0",
		"push constant 42",
		"call Output.printInt 1",
		"pop temp 0",
		"push constant 0",
		"return",
		"",
	}, "\n")
	if string(compiled) != expected {
		t.Errorf("compiled output mismatch:\n got:\n%s\nwant:\n%s", compiled, expected)
	}
}

func TestJackCompilerMultipleClasses(t *testing.T) {
	dir := t.TempDir()
	classes := map[string]string{
		"Point.jack": strings.Join([]string{
			"class Point {",
			"    field int x, y;",
			"",
			"    constructor Point new(int ax, int ay) {",
			"        let x = ax;",
			"        let y = ay;",
			"        return this;",
			"    }",
			"",
			"    method int getX() {",
			"        return x;",
			"    }",
			"}",
			"",
		}, "\n"),
		"Main.jack": strings.Join([]string{
			"class Main {",
			"    function void main() {",
			"        var Point p;",
			"        let p = Point.new(1, 2);",
			"        do Output.printInt(p.getX());",
			"        return;",
			"    }",
			"}",
			"",
		}, "\n"),
	}
	for name, content := range classes {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}

	options := map[string]string{"stdlib": "true", "typecheck": "true"}
	if status := Handler([]string{dir}, options); status != 0 {
		t.Fatalf("unexpected exit status: expected 0 got %d", status)
	}

	for _, class := range []string{"Point", "Main"} {
		if _, err := os.Stat(filepath.Join(dir, class+".vm")); err != nil {
			t.Errorf("expected %s.vm to be generated: %v", class, err)
		}
	}

	mainVM, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("failed to read Main.vm: %v", err)
	}
	if !strings.Contains(string(mainVM), "call Point.new 2") {
		t.Errorf("expected Main.vm to call the Point constructor, got:\n%s", mainVM)
	}
	if !strings.Contains(string(mainVM), "call Point.getX 1") {
		t.Errorf("expected Main.vm to call Point.getX with an implicit 'this', got:\n%s", mainVM)
	}
}

func TestJackCompilerTypecheckRejectsUnknownName(t *testing.T) {
	dir := t.TempDir()
	source := strings.Join([]string{
		"class Bad {",
		"    function int run() {",
		"        return missing;",
		"    }",
		"}",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "Bad.jack"), []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	options := map[string]string{"typecheck": "true"}
	if status := Handler([]string{dir}, options); status == 0 {
		t.Fatal("expected a non-zero exit status for a program referencing an undeclared name")
	}
}

func TestJackCompilerRequiresAtLeastOneInput(t *testing.T) {
	if status := Handler(nil, map[string]string{}); status == 0 {
		t.Fatal("expected a non-zero exit status when no inputs are provided")
	}
}
