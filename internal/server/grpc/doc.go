// Package grpcserver exposes the standard gRPC health service for a catalog
// instance. The serving status follows runtime.CheckHealth and is refreshed
// periodically while the server runs.
package grpcserver
