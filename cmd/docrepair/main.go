// Command docrepair reads an HTML document, repairs its structure and
// prints the result. With -check, it only reports the violations.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/cozy/docengine/config"
	"github.com/cozy/docengine/logger"
	"github.com/cozy/docengine/schema/basic"
	"github.com/cozy/docengine/transform"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("docrepair", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to a TOML or YAML configuration file")
	check := flags.Bool("check", false, "Report the structure violations instead of repairing them")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.NewContext(context.Background(), log)

	input := stdin
	if flags.NArg() > 0 {
		f, err := os.Open(flags.Arg(0))
		if err != nil {
			log.Error("open input", zap.Error(err))
			return 1
		}
		defer f.Close()
		input = f
	}

	opts := append(cfg.SessionOptions(), transform.WithLogger(log))
	s := transform.NewSession(basic.New(cfg.Grammar), opts...)
	if *check {
		return checkDocument(ctx, s, input, stdout)
	}
	return repairDocument(ctx, s, input, stdout)
}

// checkDocument prints the violations of the input. The exit code is 3
// when there are some.
func checkDocument(ctx context.Context, s *transform.Session, input io.Reader, stdout io.Writer) int {
	log := logger.L(ctx)
	if err := s.Tree().LoadHTML(input); err != nil {
		log.Error("parse input", zap.Error(err))
		return 1
	}
	violations := transform.Violations(transform.CheckHierarchy(s.Tree()))
	for _, v := range violations {
		fmt.Fprintln(stdout, v)
	}
	log.Debug("checked", zap.Int("violations", len(violations)))
	if len(violations) > 0 {
		return 3
	}
	return 0
}

func repairDocument(ctx context.Context, s *transform.Session, input io.Reader, stdout io.Writer) int {
	log := logger.L(ctx)
	if err := s.Load(input); err != nil {
		log.Error("repair input", zap.Error(err))
		return 1
	}
	if _, err := io.WriteString(stdout, s.Tree().Root().HTML()+"\n"); err != nil {
		log.Error("write output", zap.Error(err))
		return 1
	}
	return 0
}
