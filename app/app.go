// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package app

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emostov/substrate/node"
	"github.com/emostov/substrate/utils/logging"
	"github.com/emostov/substrate/utils/perms"
)

const Header = `             __         __           __
   ___ __ __/ /  ___ / /________ _/ /____
  (_-</ // / _ \(_-</ __/ __/ _ '/ __/ -_)
 /___/\_,_/_.__/___/\__/_/  \_,_/\__/\__/`

var _ App = (*app)(nil)

type App interface {
	// Start kicks off the application and returns immediately.
	// Start should only be called once.
	Start() error

	// Stop notifies the application to exit and returns immediately.
	// Stop should only be called after [Start].
	// It is safe to call Stop multiple times.
	Stop() error

	// ExitCode should only be called after [Start] returns with no error. It
	// should block until the application finishes
	ExitCode() (int, error)
}

func New(config node.Config) App {
	return &app{
		config: config,
		node:   &node.Node{},
	}
}

func Run(app App) int {
	// start running the application
	if err := app.Start(); err != nil {
		return 1
	}

	// register signals to kill the application
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT)
	signal.Notify(signals, syscall.SIGTERM)

	// start up a new go routine to handle attempts to kill the application
	var eg errgroup.Group
	eg.Go(func() error {
		for range signals {
			return app.Stop()
		}
		return nil
	})

	// wait for the app to exit and get the exit code response
	exitCode, err := app.ExitCode()

	// shut down the signal go routine
	signal.Stop(signals)
	close(signals)

	// if there was an error closing or running the application, report that error
	if eg.Wait() != nil || err != nil {
		return 1
	}

	// return the exit code that the application reported
	return exitCode
}

// app is a wrapper around a node that runs in this process
type app struct {
	config node.Config
	node   *node.Node

	log        logging.Logger
	logFactory logging.Factory

	exitWG   sync.WaitGroup
	exitCode int
}

// Start the business logic of the node (as opposed to config reading, etc).
// Does not block until the node is done. Errors returned from this method
// are not logged.
func (a *app) Start() error {
	// Set the data directory permissions to be read write.
	if err := perms.RestrictDirs(a.config.DatabaseConfig.Path, a.config.LoggingConfig.Directory); err != nil {
		return fmt.Errorf("failed to restrict the permissions of the data directories with: %w", err)
	}

	a.logFactory = logging.NewFactory(a.config.LoggingConfig)
	log, err := a.logFactory.Make("main")
	if err != nil {
		a.logFactory.Close()
		return err
	}
	a.log = log

	fmt.Println(Header)
	log.Info("initializing node",
		zap.Stringer("role", a.config.Role),
		zap.Stringer("offchainWorker", a.config.Offchain.WorkerMode),
		zap.Stringer("offchainIndexing", a.config.Offchain.Indexing),
		zap.Reflect("databaseConfig", a.config.DatabaseConfig),
		zap.Reflect("httpConfig", a.config.HTTPConfig),
	)

	if err := a.node.Initialize(&a.config, log, a.logFactory); err != nil {
		log.Fatal("error initializing node",
			zap.Error(err),
		)
		log.Stop()
		a.logFactory.Close()
		return err
	}

	// [a.ExitCode] will block until [a.exitWG.Done] is called
	a.exitWG.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Println("caught panic", r)
			}
			log.Stop()
			a.logFactory.Close()
			a.exitWG.Done()
		}()
		defer func() {
			// If [a.node.Dispatch()] panics, then we should log the panic and
			// then re-raise the panic. This is why the above defer is broken
			// into two parts.
			log.StopOnPanic()
		}()

		err := a.node.Dispatch()
		log.Debug("dispatch returned",
			zap.Error(err),
		)
		if err != nil {
			a.exitCode = 1
		}
		if err := a.node.Shutdown(); err != nil {
			a.exitCode = 1
		}
	}()
	return nil
}

// Stop attempts to shutdown the currently running node. This function will
// return immediately.
func (a *app) Stop() error {
	return a.node.Shutdown()
}

// ExitCode returns the exit code that the node is reporting. This function
// blocks until the node has been shut down.
func (a *app) ExitCode() (int, error) {
	a.exitWG.Wait()
	return a.exitCode, nil
}
