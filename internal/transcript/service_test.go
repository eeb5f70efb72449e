package transcript

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reelai/backend/internal/apperr"
	"github.com/reelai/backend/internal/db"
	"github.com/reelai/backend/internal/db/models"
	"github.com/reelai/backend/internal/language"
	"github.com/reelai/backend/internal/storage"
	"github.com/reelai/backend/internal/subtitle/whisper"
)

const twoCues = "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello\n\n00:00:01.000 --> 00:00:02.000\nworld\n"

type memStore struct {
	records map[string]*models.Transcript
	saves   int
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*models.Transcript{}}
}

func (m *memStore) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	if t, ok := m.records[videoID]; ok {
		return t, nil
	}
	return nil, db.ErrNotFound
}

func (m *memStore) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	t.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cp := *t
	m.records[t.VideoID] = &cp
	return nil
}

type fakeSTT struct {
	vtt   string
	err   error
	calls int
	path  string
}

func (f *fakeSTT) Transcribe(ctx context.Context, req whisper.TranscribeRequest) (*whisper.TranscribeResult, error) {
	f.calls++
	f.path = req.FilePath
	if f.err != nil {
		return nil, f.err
	}
	return &whisper.TranscribeResult{VTT: f.vtt}, nil
}

func (f *fakeSTT) Name() string { return "fake" }

// shortBucket reports a larger size than it delivers.
type shortBucket struct {
	storage.Bucket
}

func (s shortBucket) Attrs(ctx context.Context, key string) (*storage.ObjectAttrs, error) {
	a, err := s.Bucket.Attrs(ctx, key)
	if err != nil {
		return nil, err
	}
	a.Size += 10
	return a, nil
}

func newBucket(t *testing.T, objects map[string]string) storage.Bucket {
	t.Helper()
	b, err := storage.NewDirBucket(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range objects {
		if err := b.Upload(context.Background(), k, strings.NewReader(v), "audio/mpeg"); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func newTestService(t *testing.T, bucket storage.Bucket, store Store, stt whisper.Transcriber) *Service {
	t.Helper()
	return NewService(bucket, store, stt, language.Fixed("en"), nil, nil, t.TempDir())
}

func TestCreate(t *testing.T) {
	store := newMemStore()
	stt := &fakeSTT{vtt: twoCues}
	svc := newTestService(t, newBucket(t, map[string]string{"audio/v1.mp3": "mp3-bytes"}), store, stt)

	res, err := svc.Create(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Skipped {
		t.Fatal("first run should not be skipped")
	}
	tr := res.Transcript
	if tr.Content != "hello world" || tr.SegmentCount != 2 || tr.Status != models.TranscriptCompleted {
		t.Fatalf("transcript = %+v", tr)
	}
	if tr.Segments[0].Start != "00:00:00.000" || tr.Segments[1].Text != "world" {
		t.Fatalf("segments = %+v", tr.Segments)
	}
	if tr.AudioSize != int64(len("mp3-bytes")) || tr.Language != "en" || tr.ContentLength != len("hello world") {
		t.Fatalf("transcript metadata = %+v", tr)
	}
	if tr.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set by the store")
	}
	if !strings.HasSuffix(stt.path, "v1.mp3") {
		t.Fatalf("speech input path = %q", stt.path)
	}
}

func TestCreateCountsCharacters(t *testing.T) {
	store := newMemStore()
	stt := &fakeSTT{vtt: "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\ncafé déjà vu\n"}
	svc := newTestService(t, newBucket(t, map[string]string{"audio/v1.mp3": "mp3-bytes"}), store, stt)

	res, err := svc.Create(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := res.Transcript.ContentLength; got != 12 {
		t.Fatalf("ContentLength = %d, want 12 characters", got)
	}
}

func TestCreateSkipsCompleted(t *testing.T) {
	store := newMemStore()
	store.records["v1"] = &models.Transcript{VideoID: "v1", Content: "old", Status: models.TranscriptCompleted}
	stt := &fakeSTT{vtt: twoCues}
	svc := newTestService(t, newBucket(t, nil), store, stt)

	res, err := svc.Create(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !res.Skipped || res.Transcript.Content != "old" {
		t.Fatalf("result = %+v", res)
	}
	if stt.calls != 0 || store.saves != 0 {
		t.Fatalf("speech calls = %d, saves = %d; want none", stt.calls, store.saves)
	}
}

func TestCreateRetriesFailedRecord(t *testing.T) {
	store := newMemStore()
	store.records["v1"] = &models.Transcript{VideoID: "v1", Status: models.TranscriptFailed, Error: "boom"}
	svc := newTestService(t, newBucket(t, map[string]string{"audio/v1.mp3": "x"}), store, &fakeSTT{vtt: twoCues})

	res, err := svc.Create(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Skipped || !store.records["v1"].Completed() {
		t.Fatalf("failed record should be overwritten: %+v", store.records["v1"])
	}
}

func TestCreateValidation(t *testing.T) {
	stt := &fakeSTT{}
	_, err := newTestService(t, newBucket(t, nil), newMemStore(), stt).Create(context.Background(), "  ")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("Create() error = %v, want validation", err)
	}
}

func TestCreateMissingAudio(t *testing.T) {
	stt := &fakeSTT{}
	_, err := newTestService(t, newBucket(t, nil), newMemStore(), stt).Create(context.Background(), "v1")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("Create() error = %v, want not found", err)
	}
	if stt.calls != 0 {
		t.Fatal("speech service must not be called")
	}
}

func TestCreateSizeMismatch(t *testing.T) {
	stt := &fakeSTT{vtt: twoCues}
	store := newMemStore()
	bucket := shortBucket{newBucket(t, map[string]string{"audio/v1.mp3": "abc"})}
	_, err := newTestService(t, bucket, store, stt).Create(context.Background(), "v1")
	if apperr.KindOf(err) != apperr.KindIntegrity {
		t.Fatalf("Create() error = %v, want integrity", err)
	}
	if stt.calls != 0 || store.saves != 0 {
		t.Fatalf("speech calls = %d, saves = %d; want none", stt.calls, store.saves)
	}
}

func TestCreateSpeechFailureRecordsFailure(t *testing.T) {
	store := newMemStore()
	stt := &fakeSTT{err: errors.New("quota exceeded")}
	svc := newTestService(t, newBucket(t, map[string]string{"audio/v1.mp3": "abc"}), store, stt)

	_, err := svc.Create(context.Background(), "v1")
	if apperr.KindOf(err) != apperr.KindDependency {
		t.Fatalf("Create() error = %v, want dependency", err)
	}
	rec := store.records["v1"]
	if rec == nil || rec.Status != models.TranscriptFailed || !strings.Contains(rec.Error, "quota exceeded") || rec.AudioSize != 3 {
		t.Fatalf("failed record = %+v", rec)
	}
}

func TestCreatePlainTextResponse(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, newBucket(t, map[string]string{"audio/v1.mp3": "abc"}), store, &fakeSTT{vtt: "just  some\ntext"})

	res, err := svc.Create(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Transcript.Content != "just some text" || len(res.Transcript.Segments) != 0 {
		t.Fatalf("transcript = %+v", res.Transcript)
	}
}

func TestCreateSaveFailure(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	svc := newTestService(t, newBucket(t, map[string]string{"audio/v1.mp3": "abc"}), store, &fakeSTT{vtt: twoCues})

	if _, err := svc.Create(context.Background(), "v1"); apperr.KindOf(err) != apperr.KindDependency {
		t.Fatalf("Create() error = %v, want dependency", err)
	}
}
