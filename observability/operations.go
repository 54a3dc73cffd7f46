package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name for framework resolution operations
const TracerName = "github.com/SAP/ui5-project-sub000"

// Common attribute keys
const (
	AttrLibrary        = attribute.Key("ui5.library")
	AttrPackageName    = attribute.Key("ui5.package.name")
	AttrPackageVersion = attribute.Key("ui5.package.version")
	AttrBackend        = attribute.Key("ui5.backend")
	AttrCoordinates    = attribute.Key("ui5.maven.coordinates")
	AttrCacheMode      = attribute.Key("ui5.cache.mode")
	AttrCacheResult    = attribute.Key("ui5.cache.result")
	AttrSpecifier      = attribute.Key("ui5.version.specifier")
)

// StartLibrarySpan starts a span covering the processing of one framework library.
func StartLibrarySpan(ctx context.Context, library string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "library.process",
		trace.WithAttributes(AttrLibrary.String(library)),
	)
}

// StartPackageInstallSpan starts a span for a single package installation.
func StartPackageInstallSpan(ctx context.Context, backend, name, version string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "package.install",
		trace.WithAttributes(
			AttrBackend.String(backend),
			AttrPackageName.String(name),
			AttrPackageVersion.String(version),
		),
	)
}

// StartArtifactMetadataSpan starts a span for a Maven metadata lookup.
func StartArtifactMetadataSpan(ctx context.Context, logID, cacheMode string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "artifact.metadata",
		trace.WithAttributes(
			AttrCoordinates.String(logID),
			AttrCacheMode.String(cacheMode),
		),
	)
}

// StartVersionResolveSpan starts a span for resolving a version specifier.
func StartVersionResolveSpan(ctx context.Context, specifier string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "version.resolve",
		trace.WithAttributes(AttrSpecifier.String(specifier)),
	)
}

// RecordCacheResult records the metadata cache outcome on the current span.
func RecordCacheResult(ctx context.Context, result string) {
	SetAttributes(ctx, AttrCacheResult.String(result))
}

// EndSpanWithError ends a span with an error status
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
