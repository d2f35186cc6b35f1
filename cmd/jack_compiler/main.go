package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.n2t.dev/toolchain/pkg/jack"
	"go.n2t.dev/toolchain/pkg/vm"

	"github.com/teris-io/cli"
	"golang.org/x/sync/errgroup"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .jack file (or directory)
	WithArg(cli.NewArg("inputs", "The source (.jack) files to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("stdlib", "Uses the built-in ABI of the standard library for lowering").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("typecheck", "Does a full type check of source code before emitting any output").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	// The first is the aggregation of all the Translation Units (TUs) found during the input walk (just the paths)
	// The second is the container of the full program (a basic collection of parsed modules that can be explored)
	// ! While the Jack language spec follows the same semantic as Java every file is a class and every class is a
	// ! jack.Module, that said in future or other language the same could not apply. By TU we identify the source
	// ! that needs to be parsed, by module we identify the biggest entity extractable from said file. In jack this
	// ! a class but for other language it may be a module (Go), a namespace (C#) or just some basic functions (C).
	TUs, program := []string{}, jack.Program{}

	for _, input := range args {
		filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil // We recurse on dirs and ignore other filetypes
			}

			TUs = append(TUs, path)
			return nil
		})
	}

	// Tokenizing and parsing are independent per translation unit (no shared symbol
	// table or label counter crosses file boundaries), so we fan them out concurrently
	// and only join back into the single 'jack.Program' once every file has succeeded.
	classes := make([]jack.Class, len(TUs))

	var group errgroup.Group
	for i, tu := range TUs {
		i, tu := i, tu
		group.Go(func() error {
			content, err := os.ReadFile(tu)
			if err != nil {
				return fmt.Errorf("unable to open input file '%s': %w", tu, err)
			}

			tokens, err := jack.NewTokenizer(string(content)).Tokenize()
			if err != nil {
				return fmt.Errorf("unable to complete 'tokenizing' pass for '%s': %w", tu, err)
			}

			class, err := jack.NewParser(tokens).Parse()
			if err != nil {
				return fmt.Errorf("unable to complete 'parsing' pass for '%s': %w", tu, err)
			}

			classes[i] = class
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return -1
	}

	for i, tu := range TUs {
		// Removes root directory and file extension to use as module name
		filename, extension := path.Base(tu), path.Ext(tu)
		program[strings.TrimSuffix(filename, extension)] = classes[i]
	}

	// Adds to the jack.Program the stdlib ABI, this will help resolve stdlib functions w/o adding
	// them to the final executable (they are ignored after the codegen phase). This will enable
	// in future to compile project w/o defining the stdlib and assuming it can be 'linked' if needed.
	if _, enabled := options["stdlib"]; enabled {
		for name, class := range jack.StandardLibraryABI {
			program[name] = class
		}
	}

	if _, enabled := options["typecheck"]; enabled {
		checker := jack.NewTypeChecker(program)
		if _, err := checker.Check(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'typecheck' pass: %s\n", err)
			return -1
		}
	}

	// Instantiate a lowerer to convert the program from Jack to Vm
	lowerer := jack.NewLowerer(program)
	// Lowers the jack.Program to an in-memory/IR representation of its Vm counterpart 'vm.Program'.
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	// Collapses the redundant instruction pairs the lowerer tends to emit (double
	// negation, goto-to-next-label) before the program is turned into text.
	vmProgram = vm.Optimize(vmProgram)

	// Now, instantiates a code generator for the Vm (compiled) program
	codegen := vm.NewCodeGenerator(vmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, tu := range TUs {
		// Removes root directory and file extension to use as module name
		filename, extension := path.Base(tu), path.Ext(tu)
		module, ok := compiled[strings.TrimSuffix(filename, extension)]
		if !ok {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to compile module for class file '%s'\n", tu)
			return -1
		}

		output, err := os.Create(fmt.Sprintf("%s.vm", strings.TrimSuffix(tu, extension)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
			return -1
		}
		defer output.Close()

		for _, ops := range module {
			line := fmt.Sprintf("%s\n", ops)
			output.Write([]byte(line))
		}
	}

	return 0
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
