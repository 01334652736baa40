// Package catalog implements the append-only catalog writer.
//
// A catalog is a three-tier tree of JSON documents held in a storage.Storage:
//
//	index.json                       root: one entry per page
//	page{N}.json                     page: one entry per item
//	data/{YYYY.MM.DD.HH.MM.SS}/*.json item documents
//
// Items are queued with Writer.Add and persisted by Writer.Commit. A commit
// stamps every pending item with one commit id and one timestamp, saves the
// item documents, then the pages, then the root. Readers that start from the
// root therefore never observe a reference to a document that was not yet
// written. A failed commit may leave item or page documents behind; nothing
// reachable from the root refers to them.
//
// Root and page documents share one format:
//
//	{
//	  "@id": "<address>",
//	  "@type": "CatalogRoot" | "CatalogPage",
//	  "commitId": "<guid>",
//	  "commitTimeStamp": "<RFC 3339, UTC>",
//	  "count": <number of entries>,
//	  "items": [
//	    {"@id": "...", "@type": "...", "commitId": "...", "commitTimeStamp": "...", "count": 3, ...extra}
//	  ]
//	}
//
// Documents are written in RFC 8785 canonical form.
package catalog
