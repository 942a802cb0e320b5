package parser

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
)

const sampleExport = `<?xml version="1.0" encoding="UTF-8" ?>
<myanimelist>
	<myinfo>
		<user_name>tester</user_name>
		<user_export_type>1</user_export_type>
	</myinfo>
	<anime>
		<series_animedb_id>38691</series_animedb_id>
		<series_title><![CDATA[Dr. Stone]]></series_title>
		<series_type>TV</series_type>
		<series_episodes>24</series_episodes>
		<my_watched_episodes>24</my_watched_episodes>
		<my_status>Completed</my_status>
	</anime>
	<anime>
		<series_animedb_id></series_animedb_id>
		<series_title><![CDATA[No Id]]></series_title>
	</anime>
	<anime>
		<series_animedb_id>40852</series_animedb_id>
		<series_title><![CDATA[Dr. Stone: Stone Wars]]></series_title>
		<series_group>drstone</series_group>
		<series_episodes>11</series_episodes>
		<my_watched_episodes>3</my_watched_episodes>
		<my_status>Watching</my_status>
	</anime>
	<anime>
		<series_animedb_id>1</series_animedb_id>
		<series_title>   </series_title>
	</anime>
	<anime>
		<series_animedb_id>abc</series_animedb_id>
		<series_title>Broken</series_title>
	</anime>
</myanimelist>`

func TestParseExport(t *testing.T) {
	entries, err := ParseExport(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 accepted entries, got %d: %+v", len(entries), entries)
	}

	first := entries[0]
	if first.ExternalID != 38691 || first.Title != "Dr. Stone" || first.TotalUnits != 24 || first.WatchedUnits != 24 {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if first.Status != "Completed" || first.GroupID != "" {
		t.Errorf("unexpected status/group on first entry: %+v", first)
	}

	second := entries[1]
	if second.ExternalID != 40852 || second.GroupID != "drstone" || second.WatchedUnits != 3 {
		t.Errorf("unexpected second entry: %+v", second)
	}
}

func TestParseExport_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(sampleExport)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseExport(&buf)
	if err != nil {
		t.Fatalf("ParseExport(gzip) failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries from gzip export, got %d", len(entries))
	}
}

func TestParseExport_Empty(t *testing.T) {
	entries, err := ParseExport(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestParseExport_TruncatedKeepsPrefix(t *testing.T) {
	doc := `<myanimelist><anime><series_animedb_id>5</series_animedb_id><series_title>Bebop</series_title></anime><anime><series_animedb_id>6`
	entries, err := ParseExport(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected a syntax error for a truncated document")
	}
	if len(entries) != 1 || entries[0].ExternalID != 5 {
		t.Fatalf("expected the complete fragment to survive, got %+v", entries)
	}
}
