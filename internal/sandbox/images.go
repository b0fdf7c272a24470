package sandbox

import (
	"os"
	"path/filepath"
)

// projectImages maps project marker files to lightweight toolchain
// images, so a Go repo gets a Go toolchain in the container without any
// configuration.
var projectImages = []struct {
	marker string
	image  string
}{
	{"go.mod", "golang:alpine"},
	{"Cargo.toml", "rust:alpine"},
	{"package.json", "node:alpine"},
	{"pyproject.toml", "python:alpine"},
	{"requirements.txt", "python:alpine"},
}

// ImageFor returns the Docker image to use for the working directory.
// A configured image always wins; otherwise the directory's project
// markers decide, falling back to plain alpine.
func ImageFor(workDir string, config Config) string {
	if config.DockerImage != "" {
		return config.DockerImage
	}
	for _, p := range projectImages {
		if _, err := os.Stat(filepath.Join(workDir, p.marker)); err == nil {
			return p.image
		}
	}
	return defaultDockerImage
}
