// This file starts the containers used by integration and e2e tests.
// It is also used by the standalone cmd/testcontainers executable.
// Expects environment variables to be loaded from .env files.
//

package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/localnerve/booksdb/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mongoNetworkAlias = "mongo"
	mongoDatabase     = "booksdb"
	booksdbImageName  = "booksdb-test:latest"
)

var mongoPort = nat.Port("27017/tcp")

type TestContainers struct {
	Network                 *testcontainers.DockerNetwork
	MongoContainer          testcontainers.Container
	BooksDBBuilderContainer testcontainers.Container
	BooksDBContainer        testcontainers.Container
}

func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.BooksDBContainer != nil {
		if err := tc.BooksDBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate BooksDB: %v", err)
		}
	}
	if tc.BooksDBBuilderContainer != nil {
		if err := tc.BooksDBBuilderContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate BooksDB Builder: %v", err)
		}
	}
	if tc.MongoContainer != nil {
		if err := tc.MongoContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MongoDB: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// MongoURI is the host-reachable connection string of the mongo container
func (tc *TestContainers) MongoURI(ctx context.Context) (string, error) {
	return containerURL(ctx, tc.MongoContainer, "mongodb", mongoPort)
}

// BaseURL is the host-reachable address of the booksdb container
func (tc *TestContainers) BaseURL(ctx context.Context) (string, error) {
	port, err := nat.NewPort("tcp", getEnv("PORT", "3000"))
	if err != nil {
		return "", err
	}
	return containerURL(ctx, tc.BooksDBContainer, "http", port)
}

// StartMongo starts a mongo container seeded with the users collection indexes.
// The init script restarts mongod once, so readiness waits for the second listen.
// A nil network runs it on the default bridge.
func StartMongo(t *testing.T, nw *testcontainers.DockerNetwork) (testcontainers.Container, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        getEnv("MONGO_IMAGE", "mongo:7"),
		ExposedPorts: []string{string(mongoPort)},
		Env: map[string]string{
			"MONGO_INITDB_DATABASE": mongoDatabase,
		},
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(data.InitdbMongoUsers),
			ContainerFilePath: "/docker-entrypoint-initdb.d/001-users.js",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForAll(
			wait.ForLog("Waiting for connections").WithOccurrence(2),
			wait.ForListeningPort(mongoPort),
		).WithDeadline(90 * time.Second),
	}
	if nw != nil {
		req.Networks = []string{nw.Name}
		req.NetworkAliases = map[string][]string{nw.Name: {mongoNetworkAlias}}
	}

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	uri, _ := containerURL(ctx, mongoContainer, "mongodb", mongoPort)
	logMessage(t, "MONGO_URI=%s", uri)
	return mongoContainer, nil
}

// CreateAllTestContainers starts mongo and a booksdb server built from the
// repository Dockerfile, in jwt auth mode
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	debugContainer := os.Getenv("DEBUG_CONTAINER")

	// Create a network
	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	testContainers.Network = nw

	mongoContainer, err := StartMongo(t, nw)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start MongoDB")
	}
	testContainers.MongoContainer = mongoContainer

	imageExists, err := imageExists(ctx, booksdbImageName)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to check if image exists")
	}

	booksdbPortNumber := getEnv("PORT", "3000")
	tcpBooksdbPort, err := nat.NewPort("tcp", booksdbPortNumber)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to create BooksDB port")
	}

	debug := debugContainer == "true"
	booksdbExposedPorts := []string{string(tcpBooksdbPort)}
	if debug {
		booksdbExposedPorts = append(booksdbExposedPorts, "2345/tcp")
	}
	waitStrategy := booksdbWaitStrategy(tcpBooksdbPort, debug)

	booksdbContainerRequest := testcontainers.ContainerRequest{
		ExposedPorts: booksdbExposedPorts,
		Env: map[string]string{
			"PORT":           booksdbPortNumber,
			"DB_TYPE":        "mongodb",
			"MONGO_URI":      fmt.Sprintf("mongodb://%s:27017", mongoNetworkAlias),
			"MONGO_DATABASE": mongoDatabase,
			"AUTH_MODE":      "jwt",
			"JWT_SECRET":     getEnv("JWT_SECRET", TestJWTSecret),
			"LOG_LEVEL":      getEnv("LOG_LEVEL", "info"),
		},
		WaitingFor: waitStrategy,
		Networks:   []string{nw.Name},
	}

	if debugContainer == "true" {
		booksdbContainerRequest.Entrypoint = []string{
			"/usr/local/bin/dlv",
			"--listen=:2345",
			"--headless=true",
			"--api-version=2",
			"--accept-multiclient",
			"exec",
			"./booksdb",
		}
	}

	if !imageExists {
		sessionID := uuid.New().String()
		buildArgs := map[string]*string{
			"RESOURCE_REAPER_SESSION_ID": &sessionID,
		}
		if debugContainer == "true" {
			buildArgs["DEBUG"] = &debugContainer
		}

		buildContext := getEnv("TESTCONTAINERS_BUILD_CONTEXT", "../..")

		logMessage(t, "Image %s does not exist, building...", booksdbImageName)
		builderContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    buildContext,
					Dockerfile: "Dockerfile",
					Repo:       "booksdb-test-builder",
					Tag:        "latest",
					BuildArgs:  buildArgs,
					BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
						opts.Target = "builder"
					},
					PrintBuildLog: true,
				},
			},
			Started: false,
		})
		if err != nil {
			testContainers.Terminate(t)
			exitWithError(t, err, "Failed to build booksdb-test-builder")
		}
		testContainers.BooksDBBuilderContainer = builderContainer

		imageNameParts := strings.Split(booksdbImageName, ":")
		booksdbContainerRequest.FromDockerfile = testcontainers.FromDockerfile{
			Context:    buildContext,
			Dockerfile: "Dockerfile",
			Repo:       imageNameParts[0],
			Tag:        imageNameParts[1],
			KeepImage:  true,
			BuildArgs:  buildArgs,
			BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
				opts.Target = "runtime"
			},
			PrintBuildLog: true,
		}
	} else {
		logMessage(t, "Image %s exists, reusing...", booksdbImageName)
		booksdbContainerRequest.Image = booksdbImageName
	}

	booksdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: booksdbContainerRequest,
		Started:          true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start BooksDB")
	}
	testContainers.BooksDBContainer = booksdbContainer

	baseURL, _ := testContainers.BaseURL(ctx)
	logMessage(t, "BASE_URL=%s", baseURL)
	logMessage(t, "BooksDB testcontainer started successfully")
	return testContainers, nil
}

func containerURL(ctx context.Context, c testcontainers.Container, scheme string, port nat.Port) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://%s:%s", scheme, host, mapped.Port()), nil
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}

// booksdbWaitStrategy waits for /health, or for delve to listen when the
// container runs the debug build
func booksdbWaitStrategy(port nat.Port, debug bool) wait.Strategy {
	var waitStrategy wait.Strategy
	if debug {
		waitStrategy = wait.ForLog("API server listening at: [::]:2345").WithStartupTimeout(5 * time.Minute)
	} else {
		waitStrategy = wait.ForHTTP("/health").WithPort(port).WithStartupTimeout(30 * time.Second)
	}
	return waitStrategy
}
