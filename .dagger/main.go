// llmgateway CI
//
// Package main provides reproducible builds and tests locally and in CI.
package main

import (
	"context"

	"dagger/llmgateway/internal/dagger"
)

// LLMGateway is the CI module for the gateway.
type LLMGateway struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *LLMGateway {
	return &LLMGateway{
		Source: source,
	}
}

// goContainer returns a static Go container with module and build caches
// and the project source mounted. The gateway has no cgo dependencies.
func (g *LLMGateway) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", g.Source)
}

// Test runs the unit tests. Redis and Kafka are faked in-process, so no
// service containers are needed.
func (g *LLMGateway) Test(ctx context.Context) (string, error) {
	return g.goContainer().
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}

// Vet runs go vet over every package.
func (g *LLMGateway) Vet(ctx context.Context) (string, error) {
	return g.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
}
