package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var mongoOnly bool
	flag.BoolVar(&mongoOnly, "mongo", false, "start only the MongoDB container")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the booksdb testcontainers with the environment variables from the .env file.

Usage:

testcontainers [-h] [-mongo] [-f ENV_FILE_PATH]

-mongo: start only MongoDB, for running the server locally against it
ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		logging.Info().Str("file", envFilename).Msg("Loading environment variables")
		if err := config.LoadEnvFile(envFilename); err != nil {
			logging.Fatal().Err(err).Msg("Failed to load environment variables")
		}
	} else {
		logging.Info().Msg("No environment file specified, using current environment variables")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var testContainers *testutil.TestContainers
	go func() {
		if mongoOnly {
			mongoContainer, err := testutil.StartMongo(nil, nil)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to start MongoDB container")
			}
			testContainers = &testutil.TestContainers{MongoContainer: mongoContainer}
			return
		}

		var err error
		testContainers, err = testutil.CreateAllTestContainers(nil)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create test containers")
		}
	}()

	sig := <-sigs
	logging.Info().Str("signal", sig.String()).Msg("Terminating test containers...")
	if testContainers != nil {
		testContainers.Terminate(nil)
	}
}
