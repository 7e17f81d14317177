//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-processor-go/processor"
	"trpc.group/trpc-go/trpc-processor-go/value"
)

type runFlags struct {
	chainFile   string
	inputFile   string
	batch       bool
	parallelism int
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Process one input, or one input per line with --batch",
		Long: `Run builds the chain described by --chain (JSON or YAML, either a list of
processor configs or an object with an output_processors key) and applies
it. The input is the argument, the --input file, or stdin. Inputs that look
like a JSON object or array are parsed before processing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, args)
		},
	}
	cmd.Flags().StringVarP(&f.chainFile, "chain", "c", "", "chain configuration file")
	cmd.Flags().StringVarP(&f.inputFile, "input", "i", "", "read input from this file instead of stdin")
	cmd.Flags().BoolVar(&f.batch, "batch", false, "treat every non-blank input line as a separate input")
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", 0, "inputs processed at once in batch mode")
	_ = cmd.MarkFlagRequired("chain")
	return cmd
}

func (f *runFlags) run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(f.chainFile)
	if err != nil {
		return fmt.Errorf("read chain: %w", err)
	}
	configs, err := processor.LoadConfigs(data)
	if err != nil {
		return fmt.Errorf("load chain %s: %w", f.chainFile, err)
	}
	chain, err := processor.NewChain(configs)
	if err != nil {
		return fmt.Errorf("build chain %s: %w", f.chainFile, err)
	}

	text, err := f.readInput(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !f.batch {
		return writeValue(out, chain.ProcessContext(cmd.Context(), decodeInput(text)))
	}

	var inputs []any
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			inputs = append(inputs, decodeInput(line))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read batch: %w", err)
	}
	var opts []processor.BatchOption
	if f.parallelism > 0 {
		opts = append(opts, processor.WithParallelism(f.parallelism))
	}
	results, err := processor.ProcessBatch(cmd.Context(), chain, inputs, opts...)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := writeValue(out, r); err != nil {
			return err
		}
	}
	return nil
}

func (f *runFlags) readInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1 && f.inputFile != "":
		return "", errors.New("give the input as an argument or with --input, not both")
	case len(args) == 1:
		return args[0], nil
	case f.inputFile != "":
		data, err := os.ReadFile(f.inputFile)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// decodeInput parses JSON looking text and keeps anything else as text.
func decodeInput(text string) any {
	if value.LooksLikeJSON(text) {
		if v, err := value.Parse(text); err == nil {
			return v
		}
	}
	return strings.TrimRight(text, "\r\n")
}

// writeValue prints text as is and everything else as compact JSON.
func writeValue(w io.Writer, v any) error {
	s, ok := v.(string)
	if !ok {
		var err error
		if s, err = value.Marshal(v); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
	}
	_, err := fmt.Fprintln(w, s)
	return err
}
