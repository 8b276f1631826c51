// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"shaderfx/cmd"
	"shaderfx/internal/log"
	"shaderfx/pkg/build"
)

// main runs in three phases:
//
// 1. Startup (cold path):
//   - Load build information
//   - Install signal handling
//
// 2. Concurrent phase (hot path):
//   - The selected command wires audio capture, analysis, the effect and
//     its transports, and runs until interrupted
//
// 3. Shutdown (cold path):
//   - SIGINT/SIGTERM cancel the context; every command tears down its own
//     streams, recordings and servers before returning
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		if !errors.Is(err, build.ErrDevelopmentBuild) {
			log.Fatalf("%v", err)
		}
		log.Debugf("build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	err := cmd.Execute(ctx, os.Args[1:], os.Stdout)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err != nil && !errors.Is(err, context.Canceled) {
		stop()
		log.Fatalf("%v", err)
	}
}
