package subtitle

import (
	"reflect"
	"testing"

	"github.com/reelai/backend/internal/db/models"
)

func TestParseSegmentsTwoCues(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nhello\n\n00:00:02.000 --> 00:00:04.000\nworld"

	got := ParseSegments(content)
	want := []models.Segment{
		{Start: "00:00:00.000", End: "00:00:02.000", Text: "hello"},
		{Start: "00:00:02.000", End: "00:00:04.000", Text: "world"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseSegments() = %#v, want %#v", got, want)
	}
}

func TestParseSegmentsMultiLineAndIdentifiers(t *testing.T) {
	content := "WEBVTT - generated\r\n\r\n" +
		"NOTE produced by the speech service\r\nspanning two lines\r\n\r\n" +
		"1\r\n00:00.000 --> 00:01.500\r\nfirst line\r\nsecond line\r\n\r\n" +
		"intro-cue\r\n00:01.500 --> 00:03.000 align:start\r\n42\r\n"

	got := ParseSegments(content)
	want := []models.Segment{
		{Start: "00:00.000", End: "00:01.500", Text: "first line second line"},
		{Start: "00:01.500", End: "00:03.000", Text: "42"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseSegments() = %#v, want %#v", got, want)
	}
}

func TestParseSegmentsSRTCommas(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,500\nbonjour\n\n2\n00:00:02,500 --> 00:00:03,000\n\n3\n00:00:03,000 --> 00:00:04,000\nle monde\n"

	got := ParseSegments(content)
	if len(got) != 2 {
		t.Fatalf("segments = %d, want 2 (empty cue dropped): %#v", len(got), got)
	}
	if got[0].Start != "00:00:01,000" || got[1].Text != "le monde" {
		t.Fatalf("unexpected segments: %#v", got)
	}
}

func TestJoinTextReconstructsContent(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nhello\n\n00:00:02.000 --> 00:00:04.000\nworld"

	segments, text := Parse(content)
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
	if JoinText(segments) != text {
		t.Fatalf("JoinText() = %q, want %q", JoinText(segments), text)
	}
}

func TestParsePlainText(t *testing.T) {
	segments, text := Parse("  the whole\n\ntranscript   as text \n")
	if len(segments) != 0 {
		t.Fatalf("segments = %#v, want none", segments)
	}
	if segments == nil {
		t.Fatal("segments should be an empty slice, not nil")
	}
	if text != "the whole transcript as text" {
		t.Fatalf("text = %q", text)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	segments, text := Parse("WEBVTT\n\n")
	if len(segments) != 0 || text != "" {
		t.Fatalf("Parse() = %#v, %q", segments, text)
	}
}

func TestParseEmptyCuesYieldNoContent(t *testing.T) {
	for _, content := range []string{
		"WEBVTT\n\n00:00:00.000 --> 00:00:02.000\n\n",
		"WEBVTT\n\n00:00:00.000 --> 00:00:02.000\n\n00:00:02.000 --> 00:00:04.000\n",
	} {
		segments, text := Parse(content)
		if len(segments) != 0 || text != "" {
			t.Fatalf("Parse(%q) = %#v, %q, want no segments and empty text", content, segments, text)
		}
	}
}
