// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/tracevend/tracevend/internal/pprof"
	"github.com/tracevend/tracevend/internal/version"
)

type (
	cmd struct {
		Version struct{} `cmd:"" help:"Show version."`
		Serve   cmdServe `cmd:"" help:"Serve the credential-vending callback endpoint."`
	}
	cmdServe struct {
		Addr     string `help:"Address to listen on." default:":8080"`
		LogLevel string `help:"Log level: debug, info, warn or error." default:"info"`
	}
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	pprof.Run(ctx)
	signalsChan := make(chan os.Signal, 1)
	signal.Notify(signalsChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalsChan
		log.Printf("signal received, shutting down...")
		cancel()
	}()

	doMain(ctx, os.Stdout, os.Stderr, os.Args[1:], serve)
}

func doMain(ctx context.Context, stdout, stderr io.Writer, args []string, sf serveFn) {
	var c cmd
	parser, err := kong.New(&c,
		kong.Name("tracevend"),
		kong.Description("Credential-vending service for debug trace uploads"),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		log.Fatalf("Error creating parser: %v", err)
	}
	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)
	switch kctx.Command() {
	case "version":
		_, _ = stdout.Write([]byte(fmt.Sprintf("tracevend: %s\n", version.Version)))
	case "serve":
		if err := sf(ctx, c.Serve, stderr); err != nil {
			log.Fatalf("Error serving: %v", err)
		}
	default:
		panic("unreachable")
	}
}
