// Package tracing instruments outbound platform and content-store requests
// with OpenTelemetry spans. It stays silent until Init or InitWithExporter
// installs an exporter, so untraced deployments pay nothing.
package tracing
