// Command tawa is the CLI driver for the four pipeline stages. It is
// the Go port of the teacher's main.go: same urfave/cli/v2 skeleton,
// same tracerr-colored error reporting, same repr-based tree dumping.
// The teacher's init and build commands are kept (build now emits LLVM
// IR text for this pipeline), and its typeinfo command is replaced by
// the ones this pipeline needs (run/check/dump-ast/dump-ir).
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	"github.com/tawa-lang/tawa/analyzer"
	"github.com/tawa-lang/tawa/internal/codegen"
	"github.com/tawa-lang/tawa/internal/config"
	"github.com/tawa-lang/tawa/internal/stdlib"
	"github.com/tawa-lang/tawa/lexer"
	"github.com/tawa-lang/tawa/parser"

	"github.com/tawa-lang/tawa/evaluator"
)

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func die(err error) {
	tracerr.PrintSourceColor(tracerr.Wrap(err))
	os.Exit(1)
}

func main() {
	app := &cli.App{
		Name:  "tawa",
		Usage: "tawa language tools: run, build, and inspect tawa programs",
		ExitErrHandler: func(c *cli.Context, err error) {
			log.Fatalf("tawa: %v", err)
		},
		Commands: []*cli.Command{
			initCommand,
			runCommand,
			checkCommand,
			buildCommand,
			dumpASTCommand,
			dumpIRCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		die(err)
	}
}

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "create a tawa.yaml for the current directory",
	Action: func(c *cli.Context) error {
		name := c.Args().First()
		if name == "" {
			return fmt.Errorf("no package name provided")
		}
		return config.Save(config.DefaultFileName, config.Default(name))
	},
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "lex, parse, and evaluate a tawa source file",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		file := c.Args().First()
		if file == "" {
			return fmt.Errorf("no source file provided")
		}
		src, err := readSource(file)
		if err != nil {
			return err
		}

		tokens, err := lexer.Lex(src)
		if err != nil {
			return err
		}
		astSrc, err := parser.Parse(tokens)
		if err != nil {
			return err
		}
		// The Evaluator walks the AST directly; it does not depend on a
		// prior Analyzer pass, so `run` never calls analyzer.Analyze.
		result, err := evaluator.Evaluate(stdlib.Values(), astSrc)
		if err != nil {
			return err
		}
		fmt.Println(result.Print())
		return nil
	},
}

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "lex, parse, and analyze a tawa source file without running it",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		file := c.Args().First()
		if file == "" {
			return fmt.Errorf("no source file provided")
		}
		src, err := readSource(file)
		if err != nil {
			return err
		}
		tokens, err := lexer.Lex(src)
		if err != nil {
			return err
		}
		astSrc, err := parser.Parse(tokens)
		if err != nil {
			return err
		}
		if _, err := analyzer.Analyze(stdlib.Types(), astSrc); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var buildCommand = &cli.Command{
	Name:      "build",
	Usage:     "emit LLVM IR for a tawa source file, the codegen analogue of the teacher's build command",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output"},
		&cli.BoolFlag{Name: "dump", Value: false, Usage: "print the IR to stdout instead of writing a file"},
	},
	Action: func(c *cli.Context) error {
		file := c.Args().First()
		if file == "" {
			return fmt.Errorf("no source file provided")
		}
		src, err := readSource(file)
		if err != nil {
			return err
		}

		proj, found, err := config.Load(config.DefaultFileName)
		if err != nil {
			return err
		}
		if !found {
			base := filepath.Base(file)
			proj = config.Default(strings.TrimSuffix(base, filepath.Ext(base)))
		}

		tokens, err := lexer.Lex(src)
		if err != nil {
			return err
		}
		astSrc, err := parser.Parse(tokens)
		if err != nil {
			return err
		}
		irSrc, err := analyzer.Analyze(stdlib.Types(), astSrc)
		if err != nil {
			return err
		}
		module, err := codegen.Emit(irSrc, proj.Package)
		if err != nil {
			return err
		}

		if c.Bool("dump") {
			fmt.Println(module.String())
			return nil
		}
		out := c.String("output")
		if out == "" {
			out = proj.Package + ".ll"
		}
		return os.WriteFile(out, []byte(module.String()), 0o644)
	},
}

var dumpASTCommand = &cli.Command{
	Name:      "dump-ast",
	Usage:     "pretty-print the parsed syntax tree of a tawa source file",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		file := c.Args().First()
		if file == "" {
			return fmt.Errorf("no source file provided")
		}
		src, err := readSource(file)
		if err != nil {
			return err
		}
		tokens, err := lexer.Lex(src)
		if err != nil {
			return err
		}
		astSrc, err := parser.Parse(tokens)
		if err != nil {
			return err
		}
		repr.Println(astSrc)
		return nil
	},
}

var dumpIRCommand = &cli.Command{
	Name:      "dump-ir",
	Usage:     "pretty-print the analyzed, typed tree of a tawa source file",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		file := c.Args().First()
		if file == "" {
			return fmt.Errorf("no source file provided")
		}
		src, err := readSource(file)
		if err != nil {
			return err
		}
		tokens, err := lexer.Lex(src)
		if err != nil {
			return err
		}
		astSrc, err := parser.Parse(tokens)
		if err != nil {
			return err
		}
		irSrc, err := analyzer.Analyze(stdlib.Types(), astSrc)
		if err != nil {
			return err
		}
		repr.Println(irSrc)
		return nil
	},
}
