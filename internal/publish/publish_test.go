package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wordreel/wordreel/internal/pipeline"
)

// fakeS3 records PutObject calls in memory.
type fakeS3 struct {
	err     error
	objects map[string][]byte
	lastIn  *s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = body
	f.lastIn = params
	return &s3.PutObjectOutput{}, nil
}

func writeTestVideo(t *testing.T, data string) pipeline.VideoArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "learning.mp4")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return pipeline.VideoArtifact{Path: path, Width: 800, Height: 600}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("holiday_photo"); got != "videos/holiday_photo_video.mp4" {
		t.Errorf("ObjectKey = %q, want videos/holiday_photo_video.mp4", got)
	}
}

func TestPublish(t *testing.T) {
	client := newFakeS3()
	p := New(client, "wordreel-media", "us-east-1", "")

	result, err := p.Publish(context.Background(), writeTestVideo(t, "mp4-bytes"), "holiday_photo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Key != "videos/holiday_photo_video.mp4" {
		t.Errorf("Key = %q", result.Key)
	}
	want := "https://wordreel-media.s3.us-east-1.amazonaws.com/videos/holiday_photo_video.mp4"
	if result.URL != want {
		t.Errorf("URL = %q, want %q", result.URL, want)
	}

	if string(client.objects[result.Key]) != "mp4-bytes" {
		t.Error("uploaded body does not match video file")
	}
	if ct := *client.lastIn.ContentType; ct != "video/mp4" {
		t.Errorf("ContentType = %q, want video/mp4", ct)
	}
	if client.lastIn.ACL != types.ObjectCannedACLPublicRead {
		t.Errorf("ACL = %q, want public-read", client.lastIn.ACL)
	}
}

func TestPublishCustomURLBase(t *testing.T) {
	p := New(newFakeS3(), "wordreel-media", "us-east-1", "https://cdn.example.com/")

	result, err := p.Publish(context.Background(), writeTestVideo(t, "x"), "pic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.URL != "https://cdn.example.com/videos/pic_video.mp4" {
		t.Errorf("URL = %q", result.URL)
	}
}

func TestPublishOverwritesSameKey(t *testing.T) {
	client := newFakeS3()
	p := New(client, "b", "us-east-1", "")

	if _, err := p.Publish(context.Background(), writeTestVideo(t, "first"), "pic"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Publish(context.Background(), writeTestVideo(t, "second"), "pic"); err != nil {
		t.Fatal(err)
	}

	if len(client.objects) != 1 {
		t.Errorf("got %d objects, want 1", len(client.objects))
	}
	if string(client.objects["videos/pic_video.mp4"]) != "second" {
		t.Error("second publish should overwrite the first")
	}
}

func TestPublishUploadFailure(t *testing.T) {
	client := newFakeS3()
	client.err = errors.New("AccessDenied")
	p := New(client, "b", "us-east-1", "")

	_, err := p.Publish(context.Background(), writeTestVideo(t, "x"), "pic")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if pipeline.FailedStage(err) != pipeline.StagePublication {
		t.Errorf("stage = %q, want %q", pipeline.FailedStage(err), pipeline.StagePublication)
	}
	if pipeline.IsTransient(err) {
		t.Error("access error should not be transient")
	}
}

func TestPublishMissingVideoFile(t *testing.T) {
	p := New(newFakeS3(), "b", "us-east-1", "")

	_, err := p.Publish(context.Background(),
		pipeline.VideoArtifact{Path: filepath.Join(t.TempDir(), "gone.mp4")}, "pic")
	if err == nil {
		t.Fatal("expected error for missing video file")
	}
	if pipeline.FailedStage(err) != pipeline.StagePublication {
		t.Errorf("stage = %q, want %q", pipeline.FailedStage(err), pipeline.StagePublication)
	}
}
