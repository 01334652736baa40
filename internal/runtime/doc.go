// Package runtime wires storage, cursors and config into a single-node
// catalog instance. It opens the local pebble store (always used for
// cursors), selects the document backend named by config.Storage and hands
// out writers and collectors configured from the same config.
//
// Example:
//
//	cfg := config.Default()
//	rt, err := runtime.Open(ctx, runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//	w := rt.NewWriter()
//	_ = w.Add(catalog.NewDocumentItem("PackageDetails", "newtonsoft.json.6.0.8", body))
//	_, err = w.Commit(ctx, nil)
package runtime
