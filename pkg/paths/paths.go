// Package paths resolves user supplied blob references such as
// "reports/2024/summary.csv" or "reports:2024/summary.csv" into a container
// name and the blob path inside that container.
package paths

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// ContainerEnvKey names the environment variable holding the fallback container.
	ContainerEnvKey = "DataLakeContainerName"

	// DefaultContainer is used when neither the path nor the environment names a container.
	DefaultContainer = "default"

	// MaxContainerNameLength is the longest container name Azure accepts.
	MaxContainerNameLength = 63
)

var (
	containerPrefixPattern = regexp.MustCompile(`^([a-z][-a-z0-9]*)[:/]`)
	envContainerPattern    = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Reference is a path split into its container and in-container blob path.
type Reference struct {
	Container string
	BlobPath  string

	// Embedded is true when the container was taken from the path itself
	// rather than from the fallback.
	Embedded bool
}

func (r Reference) String() string {
	return r.Container + "/" + r.BlobPath
}

// Getenv is the environment lookup used for the fallback container. A nil
// Getenv reads the process environment.
type Getenv func(key string) string

// Resolve splits path into a Reference.
//
// A leading token matching ^[a-z][-a-z0-9]* followed by ':' or '/' is the
// container and is stripped, together with its delimiter, from the blob path.
// Without such a token the container falls back to DataLakeContainerName (if it
// is entirely lowercase alphanumeric) or "default", and the whole path is the
// blob path.
func Resolve(path string, getenv Getenv) Reference {
	if m := containerPrefixPattern.FindStringSubmatch(path); m != nil {
		container := m[1]
		warnIfTooLong(container)
		return Reference{
			Container: container,
			BlobPath:  path[len(m[0]):],
			Embedded:  true,
		}
	}

	container := fallbackContainer(getenv)
	warnIfTooLong(container)

	return Reference{
		Container: container,
		BlobPath:  path,
	}
}

// ContainerName returns the container part of path.
func ContainerName(path string, getenv Getenv) string {
	return Resolve(path, getenv).Container
}

// BlobPath returns the in-container part of path.
func BlobPath(path string, getenv Getenv) string {
	return Resolve(path, getenv).BlobPath
}

// DownloadLocation returns {folder}/{container}/{blobPath}. When removeSpaces is
// set every space in the result is replaced with '-'.
func DownloadLocation(folder string, ref Reference, removeSpaces bool) string {
	location := folder + "/" + ref.Container + "/" + ref.BlobPath
	if removeSpaces {
		location = strings.ReplaceAll(location, " ", "-")
	}
	return location
}

// RelPathCheck returns the relative path if the path is within the base path.
func RelPathCheck(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return ""
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}

	return rel
}

func fallbackContainer(getenv Getenv) string {
	if getenv == nil {
		getenv = os.Getenv
	}

	raw := getenv(ContainerEnvKey)
	if raw == "" {
		return DefaultContainer
	}

	if !envContainerPattern.MatchString(raw) {
		log.Debug().Str("env", ContainerEnvKey).Str("value", raw).Msg("ignoring invalid fallback container name")
		return DefaultContainer
	}

	return raw
}

func warnIfTooLong(container string) {
	if len(container) > MaxContainerNameLength {
		log.Warn().
			Str("container", container).
			Int("length", len(container)).
			Msg("container name may be too long, look for errors from Azure")
	}
}
