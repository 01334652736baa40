// Package client provides the `catalog` command-line client.
//
// The commands append documents to a local catalog and replay a served
// catalog from a cursor. They are primarily intended for developers and
// operators.
//
// Installation
//
//	go install github.com/rzbill/catalog/cmd/catalog@latest
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8080 (CATALOG_HTTP). The gRPC address is
// read from the CATALOG_GRPC environment variable (default
// 127.0.0.1:50051).
//
// Usage
//
//	# Commit two documents under one commit id
//	catalog append --type PackageDetails ./newtonsoft.json ./serilog.json
//	catalog append --type PackageDelete --id newtonsoft --at 2025-09-20T12:00:00Z - < delete.json
//
//	# Replay everything, or from a timestamp
//	catalog collect
//	catalog collect --from 2025-09-20T12:00:00Z --filter 'item_type == "PackageDetails"'
//
//	# Resume from and advance a named server cursor, polling for new commits
//	catalog collect --cursor mirror --follow --interval 30s
//
//	catalog cursor get mirror
//	catalog cursor set mirror 2025-09-20T12:00:00Z
//	catalog cursor list
//
//	catalog health
//
// Notes
//
//   - append opens the data directory itself. With pebble storage the
//     directory is locked, so stop the server first or use file/postgres
//     storage.
//   - collect prints one JSON object per item, oldest commit first. The
//     named cursor is only advanced after a whole pass succeeded.
//   - cursor set never moves a cursor backwards; the stored value is
//     printed.
package client
