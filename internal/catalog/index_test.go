package catalog

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestIndexRoundTrip(t *testing.T) {
	idx := &Index{
		Address:         testBase + "page0.json",
		Type:            TypePage,
		CommitID:        "0000014b-e0b2-b0c0-1234-56789abcdef0",
		CommitTimestamp: testTS,
		Entries: map[string]Summary{
			testBase + "data/a.json": {
				Type: "PackageDetails", CommitID: "c1", CommitTimestamp: testTS,
				Content: Extra{"nuget:id": json.RawMessage(`"a"`), "listed": json.RawMessage(`true`)},
			},
			testBase + "data/b.json": {
				Type: "PackageDetails", CommitID: "c1", CommitTimestamp: testTS.Add(-time.Hour), Count: IntPtr(4),
			},
		},
		Extra: Extra{"@context": json.RawMessage(`{"@vocab":"http://schema.example/"}`)},
	}
	first, err := EncodeIndex(idx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeIndex(first)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Count != 2 || decoded.Address != idx.Address || decoded.CommitID != idx.CommitID {
		t.Fatalf("container mismatch: %+v", decoded)
	}
	if !decoded.CommitTimestamp.Equal(testTS) {
		t.Fatalf("timestamp precision lost: %s", decoded.CommitTimestamp)
	}
	a := decoded.Entries[testBase+"data/a.json"]
	if string(a.Content["listed"]) != "true" || a.Count != nil {
		t.Fatalf("entry a mismatch: %+v", a)
	}
	b := decoded.Entries[testBase+"data/b.json"]
	if b.Count == nil || *b.Count != 4 || b.Content != nil {
		t.Fatalf("entry b mismatch: %+v", b)
	}
	if _, leaked := decoded.Extra["listed"]; leaked {
		t.Fatalf("entry content leaked to container: %v", decoded.Extra)
	}
	second, err := EncodeIndex(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("round trip changed bytes:\n%s\n%s", first, second)
	}
}

func TestEncodeOrdersItemsByTimestamp(t *testing.T) {
	data, err := EncodeIndex(&Index{
		Type: TypePage, CommitID: "c", CommitTimestamp: testTS,
		Entries: map[string]Summary{
			"z-early": {Type: "T", CommitID: "c", CommitTimestamp: testTS.Add(-time.Minute)},
			"a-late":  {Type: "T", CommitID: "c", CommitTimestamp: testTS},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var doc struct {
		Items []struct {
			ID string `json:"@id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(doc.Items) != 2 || doc.Items[0].ID != "z-early" {
		t.Fatalf("unexpected order: %+v", doc.Items)
	}
}

func TestEncodeRejectsReservedExtra(t *testing.T) {
	_, err := EncodeIndex(&Index{
		Type: TypePage, CommitID: "c", CommitTimestamp: testTS,
		Entries: map[string]Summary{"x": {Type: "T", CommitID: "c", CommitTimestamp: testTS, Content: Extra{"@type": json.RawMessage(`"Other"`)}}},
	})
	if !errors.Is(err, ErrReservedProperty) {
		t.Fatalf("expected ErrReservedProperty, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"not object", `[]`},
		{"missing items", `{"@type":"CatalogRoot","commitId":"c","commitTimeStamp":"2015-03-01T00:00:00Z"}`},
		{"missing commit id", `{"@type":"CatalogRoot","commitTimeStamp":"2015-03-01T00:00:00Z","items":[]}`},
		{"bad timestamp", `{"@type":"CatalogRoot","commitId":"c","commitTimeStamp":"yesterday","items":[]}`},
		{"item missing timestamp", `{"@type":"CatalogRoot","commitId":"c","commitTimeStamp":"2015-03-01T00:00:00Z","items":[{"@id":"a","@type":"T","commitId":"c"}]}`},
		{"duplicate item", `{"@type":"CatalogRoot","commitId":"c","commitTimeStamp":"2015-03-01T00:00:00Z","items":[{"@id":"a","@type":"T","commitId":"c","commitTimeStamp":"2015-03-01T00:00:00Z"},{"@id":"a","@type":"T","commitId":"c","commitTimeStamp":"2015-03-01T00:00:00Z"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeIndex([]byte(tt.doc)); !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("expected ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestParseTimestampWithoutZone(t *testing.T) {
	got, err := ParseTimestamp("2015-03-01T12:30:45.1230000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(testTS) {
		t.Fatalf("got %s", got)
	}
}
