package db

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/reelai/backend/internal/db/models"
)

func newTestSQLite(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleTranscript() *models.Transcript {
	return &models.Transcript{
		VideoID: "v1",
		Content: "hello world",
		Segments: []models.Segment{
			{Start: "00:00:00.000", End: "00:00:02.000", Text: "hello"},
			{Start: "00:00:02.000", End: "00:00:04.000", Text: "world"},
		},
		Status:        models.TranscriptCompleted,
		Language:      "en",
		AudioSize:     2048,
		ContentLength: 11,
		SegmentCount:  2,
	}
}

func TestSQLiteVideo(t *testing.T) {
	ctx := context.Background()
	d := newTestSQLite(t)

	if _, err := d.GetVideo(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetVideo(missing) error = %v", err)
	}
	if err := d.SaveVideo(ctx, &models.Video{ID: "v1", VideoURL: "videos/v1.mp4"}); err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}
	v, err := d.GetVideo(ctx, "v1")
	if err != nil || v.VideoURL != "videos/v1.mp4" {
		t.Fatalf("GetVideo() = %+v, %v", v, err)
	}
}

func TestSQLiteTranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestSQLite(t)

	if _, err := d.GetTranscript(ctx, "v1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTranscript(missing) error = %v", err)
	}

	in := sampleTranscript()
	if err := d.SaveTranscript(ctx, in); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	if in.CreatedAt.IsZero() {
		t.Fatal("SaveTranscript should assign CreatedAt")
	}

	got, err := d.GetTranscript(ctx, "v1")
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}
	if !reflect.DeepEqual(got.Segments, in.Segments) || got.Content != in.Content || !got.Completed() {
		t.Fatalf("GetTranscript() = %+v", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, in.CreatedAt)
	}
}

func TestSQLiteFailedRecordIsOverwritten(t *testing.T) {
	ctx := context.Background()
	d := newTestSQLite(t)

	failed := &models.Transcript{VideoID: "v1", Status: models.TranscriptFailed, Error: "speech service failed"}
	if err := d.SaveTranscript(ctx, failed); err != nil {
		t.Fatalf("SaveTranscript(failed) error = %v", err)
	}
	got, err := d.GetTranscript(ctx, "v1")
	if err != nil || got.Completed() || got.Segments == nil {
		t.Fatalf("failed record = %+v, %v", got, err)
	}

	if err := d.SaveTranscript(ctx, sampleTranscript()); err != nil {
		t.Fatalf("SaveTranscript(completed) error = %v", err)
	}
	got, err = d.GetTranscript(ctx, "v1")
	if err != nil || !got.Completed() || got.Error != "" {
		t.Fatalf("completed record = %+v, %v", got, err)
	}
}

// fakeDynamo keeps items per table in memory.
type fakeDynamo struct {
	tables map[string]map[string]map[string]dynamodbtypes.AttributeValue
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["id"].(*dynamodbtypes.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.tables[aws.ToString(in.TableName)][id]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	table := aws.ToString(in.TableName)
	if f.tables[table] == nil {
		f.tables[table] = map[string]map[string]dynamodbtypes.AttributeValue{}
	}
	id := in.Item["id"].(*dynamodbtypes.AttributeValueMemberS).Value
	f.tables[table][id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoTranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDynamo{tables: map[string]map[string]map[string]dynamodbtypes.AttributeValue{
		"videos": {"v1": {
			"id":       &dynamodbtypes.AttributeValueMemberS{Value: "v1"},
			"videoUrl": &dynamodbtypes.AttributeValueMemberS{Value: "gs://bucket/videos/v1.mp4"},
		}},
	}}
	d := NewDynamoWithClient(fake, "videos", "transcripts")
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	v, err := d.GetVideo(ctx, "v1")
	if err != nil || v.VideoURL != "gs://bucket/videos/v1.mp4" {
		t.Fatalf("GetVideo() = %+v, %v", v, err)
	}
	if _, err := d.GetVideo(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetVideo(nope) error = %v", err)
	}

	in := sampleTranscript()
	if err := d.SaveTranscript(ctx, in); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	got, err := d.GetTranscript(ctx, "v1")
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}
	if !got.CreatedAt.Equal(fixed) || got.AudioSize != 2048 || got.SegmentCount != 2 || got.Language != "en" {
		t.Fatalf("GetTranscript() = %+v", got)
	}
	if !reflect.DeepEqual(got.Segments, in.Segments) {
		t.Fatalf("segments = %+v", got.Segments)
	}
}
