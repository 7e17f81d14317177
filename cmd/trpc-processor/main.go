//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Command trpc-processor runs processor chains from the command line and
// serves them over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trpc.group/trpc-go/trpc-processor-go/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root, g := newRootCmd()
	if err := executeRoot(ctx, root, g); err != nil {
		log.Errorf("trpc-processor: %v", err)
		stop()
		os.Exit(1)
	}
}
