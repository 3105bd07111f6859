package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/collabedit/docsync/internal/client/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "client config path (defaults to ~/.config/docsync/client.toml)")
	server := flag.String("server", "", "server URL (overrides config)")
	user := flag.String("user", "", "username to prefill on the login form")
	document := flag.String("document", "", "document id (defaults to main)")
	mirrorPath := flag.String("mirror", "", "sync the document to this file instead of opening the editor")
	discover := flag.Bool("discover", false, "find the server on the local network over mDNS")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		Server:     *server,
		Username:   *user,
		Document:   *document,
		MirrorPath: *mirrorPath,
		Discover:   *discover,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "docsync: %v\n", err)
		return 1
	}
	return 0
}
