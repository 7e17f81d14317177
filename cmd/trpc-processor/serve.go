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
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-processor-go/log"
	"trpc.group/trpc-go/trpc-processor-go/processor"
	"trpc.group/trpc-go/trpc-processor-go/server/debug"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	addr        string
	chains      string
	parallelism int
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve processor chains over HTTP",
		Long: `Serve starts the debug server. Every file matched by --chains becomes a
named chain, called after the file name without its extension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&f.chains, "chains", "", `glob of chain files, for example "chains/**/*.yaml"`)
	cmd.Flags().IntVarP(&f.parallelism, "parallelism", "p", 0, "inputs of one batch request processed at once")
	return cmd
}

func (f *serveFlags) serve(ctx context.Context) error {
	opts := []debug.Option{debug.WithParallelism(f.parallelism)}
	if f.chains != "" {
		chains, err := loadChains(f.chains)
		if err != nil {
			return err
		}
		for name, chain := range chains {
			opts = append(opts, debug.WithChain(name, chain))
		}
	}
	dbg := debug.New(opts...)
	defer func() {
		if err := dbg.Close(); err != nil {
			log.Warnf("trpc-processor: close debug server: %v", err)
		}
	}()
	srv := &http.Server{
		Addr:              f.addr,
		Handler:           dbg.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("trpc-processor: listening on %s", f.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadChains builds a chain from every file matching pattern.
func loadChains(pattern string) (map[string]*processor.Chain, error) {
	files, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no chain files match %q", pattern)
	}
	chains := make(map[string]*processor.Chain, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if _, dup := chains[name]; dup {
			return nil, fmt.Errorf("chain %q defined more than once (%s)", name, file)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		configs, err := processor.LoadConfigs(data)
		if err != nil {
			return nil, fmt.Errorf("load chain %s: %w", file, err)
		}
		chain, err := processor.NewChain(configs)
		if err != nil {
			return nil, fmt.Errorf("build chain %s: %w", file, err)
		}
		log.Debugf("trpc-processor: chain %q loaded from %s with %d stages", name, file, chain.Len())
		chains[name] = chain
	}
	return chains, nil
}
