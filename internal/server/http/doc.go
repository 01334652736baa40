// Package httpserver publishes a catalog over HTTP.
//
// Catalog documents are served under the path of the configured base
// address, so the addresses written into root and page documents resolve
// against this server. Named cursors are exposed as watermark documents:
//
//	GET  /v1/health
//	GET  {basePath}index.json, {basePath}page0.json, {basePath}data/...
//	GET  /v1/cursors
//	GET  /v1/cursors/{name}    {"value": "<ISO-8601>"}
//	PUT  /v1/cursors/{name}    advance, never regress
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: config.Default()})
//	s, _ := httpserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
