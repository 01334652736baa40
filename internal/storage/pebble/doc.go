// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// batches and minimal metrics hooks, plus BlobStore, a catalog storage port
// backed by the same database.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	blobs, _ := pebblestore.NewBlobStore(db, "http://localhost:8080/catalog/")
//	_ = blobs.Save(ctx, blobs.ResolveURI("index.json"), storage.NewJSONContent(b, storage.CacheNoStore))
//
// Keys:
//   - blob/{relative path}        catalog documents (framed record with crc32c)
//   - cursor/{name}               durable collector cursors (see internal/cursor)
package pebblestore
