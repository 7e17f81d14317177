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
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	itelemetry "trpc.group/trpc-go/trpc-processor-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-processor-go/telemetry/trace"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel     string
	logFormat    string
	stageTrace   bool
	otlpEndpoint string
	otlpProtocol string
	otlpHeaders  map[string]string

	cleanups []func() error
}

// newRootCmd builds the command tree. Export shutdown is left to
// executeRoot, since cobra skips post-run hooks when a command fails.
func newRootCmd() (*cobra.Command, *globalFlags) {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "trpc-processor",
		Short:         "Run declarative JSON processor chains",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", log.LevelInfo, "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", log.FormatConsole, "log format: console or json")
	pf.BoolVar(&g.stageTrace, "trace", false, "log the value before and after every stage")
	pf.StringVar(&g.otlpEndpoint, "otlp-endpoint", "", "export traces and metrics to this OTLP endpoint")
	pf.StringVar(&g.otlpProtocol, "otlp-protocol", itelemetry.ProtocolGRPC, "OTLP protocol: grpc or http")
	pf.StringToStringVar(&g.otlpHeaders, "otlp-header", nil, "OTLP export header as key=value, repeatable")

	root.AddCommand(newRunCmd(), newServeCmd(), newTypesCmd())
	return root, g
}

// executeRoot runs root and then flushes the OTLP exporters, whether or not
// the command succeeded.
func executeRoot(ctx context.Context, root *cobra.Command, g *globalFlags) (err error) {
	defer func() {
		if shutdownErr := g.shutdown(); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown telemetry: %w", shutdownErr))
		}
	}()
	return root.ExecuteContext(ctx)
}

func (g *globalFlags) setup(cmd *cobra.Command) error {
	log.SetLevel(g.logLevel)
	if err := log.SetFormat(g.logFormat); err != nil {
		return err
	}
	log.SetTraceEnabled(g.stageTrace)
	if g.otlpEndpoint == "" {
		return nil
	}
	cleanTrace, err := trace.Start(cmd.Context(),
		trace.WithEndpoint(g.otlpEndpoint), trace.WithProtocol(g.otlpProtocol),
		trace.WithHeaders(g.otlpHeaders))
	if err != nil {
		return fmt.Errorf("start trace export: %w", err)
	}
	g.cleanups = append(g.cleanups, cleanTrace)
	cleanMetric, err := metric.Start(cmd.Context(),
		metric.WithEndpoint(g.otlpEndpoint), metric.WithProtocol(g.otlpProtocol),
		metric.WithHeaders(g.otlpHeaders))
	if err != nil {
		return errors.Join(fmt.Errorf("start metric export: %w", err), g.shutdown())
	}
	g.cleanups = append(g.cleanups, cleanMetric)
	return nil
}

func (g *globalFlags) shutdown() error {
	var errs []error
	for _, clean := range g.cleanups {
		errs = append(errs, clean())
	}
	g.cleanups = nil
	return errors.Join(errs...)
}
