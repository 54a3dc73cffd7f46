// Package version resolves framework version specifiers (exact versions, semver
// ranges, distribution tags and snapshot ranges) against a version catalog.
package version

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/SAP/ui5-project-sub000/observability"
)

// SnapshotSuffix marks versions and ranges of the snapshot channel.
const SnapshotSuffix = "-SNAPSHOT"

// snapshotRangePattern matches MAJOR-SNAPSHOT and MAJOR.MINOR-SNAPSHOT.
var snapshotRangePattern = regexp.MustCompile(`(?i)^(0|[1-9]\d*)(?:\.(0|[1-9]\d*))?-SNAPSHOT$`)

// ErrTagsUnsupported is returned by catalogs without distribution tags.
var ErrTagsUnsupported = errors.New("distribution tags are not supported")

// Catalog lists the versions and distribution tags available for a framework.
type Catalog interface {
	FetchAllVersions(ctx context.Context) ([]string, error)
	// FetchAllTags returns tag name to version. Catalogs without tag support return
	// ErrTagsUnsupported.
	FetchAllTags(ctx context.Context) (map[string]string, error)
}

// Options carries framework specific resolution hints.
type Options struct {
	// FrameworkName is used in guidance messages, e.g. "SAPUI5".
	FrameworkName string
	// MinimumVersion is the oldest version consumable by the tooling, if any.
	MinimumVersion string
}

// Reason classifies a resolution failure.
type Reason int

const (
	// InvalidSpecifier means the specifier has an unsupported shape.
	InvalidSpecifier Reason = iota
	// UnknownTag means the specifier names a tag the catalog does not know.
	UnknownTag
	// Unresolvable means no catalog version satisfies the specifier.
	Unresolvable
)

// Error is a version specifier error with a user facing message.
type Error struct {
	Specifier string
	Reason    Reason
	message   string
}

func (e *Error) Error() string { return e.message }

func invalidSpecifier(specifier string) *Error {
	return &Error{
		Specifier: specifier,
		Reason:    InvalidSpecifier,
		message:   fmt.Sprintf("Framework version specifier %q is incorrect or not supported", specifier),
	}
}

// IsSnapshot reports whether a version or range targets the snapshot channel.
func IsSnapshot(specifier string) bool {
	return strings.HasSuffix(strings.ToUpper(specifier), SnapshotSuffix)
}

// Resolve returns the highest catalog version satisfying specifier.
func Resolve(ctx context.Context, specifier string, catalog Catalog, opts Options) (_ string, err error) {
	ctx, span := observability.StartVersionResolveSpan(ctx, specifier)
	defer func() { observability.EndSpanWithError(span, err) }()

	if strings.TrimSpace(specifier) == "" {
		return "", invalidSpecifier(specifier)
	}

	spec, snapshotRange, err := Spec(ctx, specifier, catalog)
	if err != nil {
		return "", err
	}

	versions, err := catalog.FetchAllVersions(ctx)
	if err != nil {
		return "", err
	}

	resolved, err := MaxSatisfying(versions, spec, IsSnapshot(specifier), snapshotRange)
	if err != nil {
		return "", invalidSpecifier(specifier)
	}
	if resolved != "" {
		return resolved, nil
	}

	if opts.MinimumVersion != "" {
		if exact, err := semver.StrictNewVersion(spec); err == nil {
			if exact.LessThan(semver.MustParse(opts.MinimumVersion)) {
				return "", &Error{
					Specifier: specifier,
					Reason:    Unresolvable,
					message: fmt.Sprintf("Could not resolve framework version %s. "+
						"Note that %s framework libraries can only be consumed by the UI5 Tooling "+
						"starting with %s v%s", specifier, opts.FrameworkName, opts.FrameworkName, opts.MinimumVersion),
				}
			}
		}
	}

	return "", &Error{
		Specifier: specifier,
		Reason:    Unresolvable,
		message: fmt.Sprintf("Could not resolve framework version %s. "+
			"Make sure the version is valid and available in the configured registry.", specifier),
	}
}

// Spec classifies specifier and returns the semver range to match. snapshotRange is
// true when a MAJOR[.MINOR]-SNAPSHOT shorthand was expanded.
func Spec(ctx context.Context, specifier string, catalog Catalog) (spec string, snapshotRange bool, err error) {
	if IsSnapshot(specifier) {
		if m := snapshotRangePattern.FindStringSubmatch(specifier); m != nil {
			minor := m[2]
			if minor == "" {
				minor = "x"
			}
			return fmt.Sprintf("%s.%s.x%s", m[1], minor, SnapshotSuffix), true, nil
		}
	}

	if _, err := semver.NewConstraint(specifier); err == nil {
		return specifier, false, nil
	}

	// Same tag name restriction as npm
	if url.QueryEscape(specifier) != specifier {
		return "", false, invalidSpecifier(specifier)
	}

	tags, err := catalog.FetchAllTags(ctx)
	if errors.Is(err, ErrTagsUnsupported) {
		// Both resolve to the highest available version; IsSnapshot decides whether
		// pre-releases take part
		if specifier == "latest" || specifier == "latest-snapshot" {
			return "*", false, nil
		}
		return "", false, invalidSpecifier(specifier)
	}
	if err != nil {
		return "", false, err
	}

	tagged, ok := tags[specifier]
	if !ok || tagged == "" {
		return "", false, &Error{
			Specifier: specifier,
			Reason:    UnknownTag,
			message: fmt.Sprintf("Could not resolve framework version via tag '%s'. "+
				"Make sure the tag is available in the configured registry.", specifier),
		}
	}
	return tagged, false, nil
}

// MaxSatisfying returns the highest version in versions satisfying spec, or "" when
// none does. Pre-release versions take part only when includePrerelease is set;
// snapshotOnly restricts candidates to -SNAPSHOT pre-releases. Unparsable catalog
// entries are skipped.
func MaxSatisfying(versions []string, spec string, includePrerelease, snapshotOnly bool) (string, error) {
	constraint, err := semver.NewConstraint(spec)
	if err != nil {
		return "", fmt.Errorf("parse range %q: %w", spec, err)
	}

	var best *semver.Version
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if snapshotOnly && !strings.EqualFold(v.Prerelease(), "SNAPSHOT") {
			continue
		}
		if !satisfies(constraint, v, includePrerelease) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}

	if best == nil {
		return "", nil
	}
	return best.Original(), nil
}

func satisfies(c *semver.Constraints, v *semver.Version, includePrerelease bool) bool {
	if c.Check(v) {
		return true
	}
	if !includePrerelease || v.Prerelease() == "" {
		return false
	}
	// Ranges without a pre-release tag exclude pre-releases, so test the release
	// the pre-release leads up to instead
	release, err := v.SetPrerelease("")
	if err != nil {
		return false
	}
	return c.Check(&release)
}
