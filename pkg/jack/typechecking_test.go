package jack_test

import (
	"testing"

	"go.n2t.dev/toolchain/pkg/jack"
)

func programOf(t *testing.T, sources map[string]string) jack.Program {
	t.Helper()
	program := jack.Program{}
	for name, source := range sources {
		tokens, err := jack.NewTokenizer(source).Tokenize()
		if err != nil {
			t.Fatalf("unexpected tokenizer error in %s: %v", name, err)
		}
		class, err := jack.NewParser(tokens).Parse()
		if err != nil {
			t.Fatalf("unexpected parser error in %s: %v", name, err)
		}
		program[name] = class
	}
	return program
}

func TestTypeCheckerAcceptsWellFormedProgram(t *testing.T) {
	program := programOf(t, map[string]string{
		"Point": `
			class Point {
				field int x, y;

				constructor Point new(int ax, int ay) {
					let x = ax;
					let y = ay;
					return this;
				}

				method int getX() {
					return x;
				}

				function int origin() {
					return 0;
				}
			}
		`,
	})

	checker := jack.NewTypeChecker(program)
	if ok, err := checker.Check(); err != nil || !ok {
		t.Fatalf("expected a well-formed program to pass, got ok=%v err=%v", ok, err)
	}
}

func TestTypeCheckerRejectsUnknownName(t *testing.T) {
	program := programOf(t, map[string]string{
		"Bad": `
			class Bad {
				function int run() {
					return missing;
				}
			}
		`,
	})

	checker := jack.NewTypeChecker(program)
	if _, err := checker.Check(); err == nil {
		t.Fatal("expected an error for an undeclared name")
	}
}

func TestTypeCheckerRejectsFieldInFunction(t *testing.T) {
	program := programOf(t, map[string]string{
		"Bad": `
			class Bad {
				field int x;

				function int run() {
					return x;
				}
			}
		`,
	})

	checker := jack.NewTypeChecker(program)
	if _, err := checker.Check(); err == nil {
		t.Fatal("expected an error for a field accessed from a function (no receiver)")
	}
}

func TestTypeCheckerRejectsWrongReturnShape(t *testing.T) {
	t.Run("value from a void subroutine", func(t *testing.T) {
		program := programOf(t, map[string]string{
			"Bad": `
				class Bad {
					function void run() {
						return 1;
					}
				}
			`,
		})
		if _, err := jack.NewTypeChecker(program).Check(); err == nil {
			t.Fatal("expected an error for returning a value from a void subroutine")
		}
	})

	t.Run("bare return from a value subroutine", func(t *testing.T) {
		program := programOf(t, map[string]string{
			"Bad": `
				class Bad {
					function int run() {
						return;
					}
				}
			`,
		})
		if _, err := jack.NewTypeChecker(program).Check(); err == nil {
			t.Fatal("expected an error for a bare return from a non-void subroutine")
		}
	})
}

func TestTypeCheckerRejectsUndeclaredMethodCall(t *testing.T) {
	program := programOf(t, map[string]string{
		"Bad": `
			class Bad {
				function void run() {
					do missingMethod();
					return;
				}
			}
		`,
	})

	if _, err := jack.NewTypeChecker(program).Check(); err == nil {
		t.Fatal("expected an error for a bare call to an undeclared method")
	}
}

func TestTypeCheckerRejectsBareCallToFunction(t *testing.T) {
	program := programOf(t, map[string]string{
		"Bad": `
			class Bad {
				function int helper() {
					return 0;
				}

				function void run() {
					do helper();
					return;
				}
			}
		`,
	})

	if _, err := jack.NewTypeChecker(program).Check(); err == nil {
		t.Fatal("expected an error for a bare call to a declared 'function' (not 'method')")
	}
}
