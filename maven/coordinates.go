// Package maven implements the Maven snapshot repository backend: metadata and
// artifact retrieval, time-boxed local metadata caching with revision history, and
// installation of artifacts and the packages they contain.
package maven

import (
	"fmt"
	"path"
	"strings"

	"github.com/SAP/ui5-project-sub000/cache"
)

// Coordinates identify a Maven artifact deployment.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Extension  string
}

// ParseGAV parses "group:artifact:version[:classifier[:extension]]".
func ParseGAV(gav string) (Coordinates, error) {
	parts := strings.Split(gav, ":")
	if len(parts) < 3 || len(parts) > 5 {
		return Coordinates{}, fmt.Errorf("invalid Maven coordinates %q", gav)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Coordinates{}, fmt.Errorf("invalid Maven coordinates %q", gav)
		}
	}
	c := Coordinates{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2], Extension: "jar"}
	if len(parts) > 3 {
		c.Classifier = parts[3]
	}
	if len(parts) > 4 && parts[4] != "" {
		c.Extension = parts[4]
	}
	return c, nil
}

// LogID renders the coordinates for messages.
func (c Coordinates) LogID() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", c.GroupID, c.ArtifactID, c.Version, c.Classifier, c.Extension)
}

// FsID is a file system safe identifier of the coordinates, used for metadata
// documents, artifact directories and lock names.
func (c Coordinates) FsID() string {
	parts := []string{c.GroupID, c.ArtifactID, c.Version}
	if c.Classifier != "" {
		parts = append(parts, c.Classifier)
	}
	parts = append(parts, c.Extension)
	return cache.RemoveInvalidFileNameChars(strings.Join(parts, "_"))
}

// artifactDir is the repository path of the artifact, with the version directory
// when a version is set.
func (c Coordinates) artifactDir() string {
	p := path.Join(strings.Split(c.GroupID, ".")...)
	p = path.Join(p, c.ArtifactID)
	if c.Version != "" {
		p = path.Join(p, c.Version)
	}
	return p
}

// fileName is the repository file name of the deployment with the given revision.
func (c Coordinates) fileName(revision string) string {
	name := c.ArtifactID + "-" + revision
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.Extension
}
