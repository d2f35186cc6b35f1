package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Exercises the assembler end-to-end (parse, lower, codegen) against a small
// in-repo fixture and checks the produced binary text directly.
func TestHackAssembler(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Add.asm")
	output := filepath.Join(dir, "Add.hack")

	source := strings.Join([]string{
		"// adds 2 and 3, stores the result in R0",
		"@2",
		"D=A",
		"@3",
		"D=D+A",
		"@0",
		"M=D",
		"",
	}, "\n")
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if status := Handler([]string{input, output}, nil); status != 0 {
		t.Fatalf("unexpected exit status: expected 0 got %d", status)
	}

	compiled, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("failed to read compiled output: %v", err)
	}

	expected := strings.Join([]string{
		"0000000000000010",
		"1110110000010000",
		"0000000000000011",
		"1110000010010000",
		"0000000000000000",
		"1110001100001000",
		"",
	}, "\n")
	if string(compiled) != expected {
		t.Errorf("compiled output mismatch:\n got:\n%s\nwant:\n%s", compiled, expected)
	}
}

func TestHackAssemblerWithLabelsAndLoop(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "CountDown.asm")
	output := filepath.Join(dir, "CountDown.hack")

	source := strings.Join([]string{
		"@3",
		"D=A",
		"@0",
		"M=D",
		"(LOOP)",
		"@0",
		"D=M",
		"@END",
		"D;JEQ",
		"@0",
		"M=M-1",
		"@LOOP",
		"0;JMP",
		"(END)",
		"",
	}, "\n")
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if status := Handler([]string{input, output}, nil); status != 0 {
		t.Fatalf("unexpected exit status: expected 0 got %d", status)
	}

	compiled, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("failed to read compiled output: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(compiled), "\n"), "\n")
	// Label declarations don't emit a binary line of their own: 12 real instructions in, 12 out.
	if len(lines) != 12 {
		t.Fatalf("expected 12 encoded instructions, got %d", len(lines))
	}
	for i, line := range lines {
		if len(line) != 16 {
			t.Errorf("line %d: expected a 16-bit word, got %q", i, line)
		}
	}
}

func TestHackAssemblerRejectsMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "Out.hack")

	if status := Handler([]string{filepath.Join(dir, "Missing.asm"), output}, nil); status == 0 {
		t.Fatal("expected a non-zero exit status for a missing input file")
	}
}
