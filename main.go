/*
Textured cube application built on the engine package
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkcube/engine"
	"github.com/spaghettifunk/vkcube/engine/core"
	"github.com/spaghettifunk/vkcube/testbed"
)

func main() {
	configPath := flag.String("config", "testbed/config.toml", "path to the application config file")
	flag.Parse()

	tb, err := testbed.NewTestGame(*configPath)
	if err != nil {
		panic(err)
	}

	e, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		e.Shutdown()
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the main loop, teardown runs below on the main thread
	go func() {
		sig := <-sigCh
		core.LogInfo("Received %s, stopping.", sig)
		e.Stop()
	}()

	// run engine
	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("Shutdown failed: %s", err)
	}
	if runErr != nil {
		panic(runErr)
	}
}
