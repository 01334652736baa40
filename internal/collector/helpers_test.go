package collector

import "github.com/rzbill/catalog/internal/storage"

var storageContent = storage.Content{Data: []byte(`{"items":"nope"}`), ContentType: storage.ContentTypeJSON}
