package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

type fakeExtractor struct {
	calls int
	title string
	ext   string
	name  string
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, sourceURL, dir string) (*Extraction, error) {
	f.calls++
	if f.err != nil {
		// Leave a partial download behind like a real backend would.
		_ = os.WriteFile(filepath.Join(dir, "partial.part"), []byte("x"), 0o644)
		return nil, f.err
	}
	path := filepath.Join(dir, f.name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return nil, err
	}
	return &Extraction{Title: f.title, Ext: f.ext, Path: path}, nil
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", valid: true},
		{url: "https://youtube.com/watch?v=dQw4w9WgXcQ", valid: true},
		{url: "https://youtu.be/dQw4w9WgXcQ", valid: true},
		{url: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", valid: true},
		{url: "https://music.youtube.com/watch?v=dQw4w9WgXcQ", valid: true},
		{url: "http://youtu.be/dQw4w9WgXcQ", valid: true},
		{url: "youtu.be/dQw4w9WgXcQ", valid: true},
		{url: "  https://youtu.be/dQw4w9WgXcQ  ", valid: true},
		{url: "https://vimeo.com/12345", valid: false},
		{url: "https://example.com/?next=youtube.com", valid: false},
		{url: "ftp://youtube.com/watch?v=x", valid: false},
		{url: "not a url", valid: false},
		{url: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateSource(tt.url)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, pipeline.KindInvalidSource, pipeline.KindOf(err))
		})
	}
}

func TestFetchRejectsInvalidSourceWithoutExtracting(t *testing.T) {
	extractor := &fakeExtractor{}
	fetcher := NewFetcher(extractor, pipeline.NullLogger())

	_, _, err := fetcher.Fetch(context.Background(), "https://vimeo.com/1", t.TempDir())

	assert.Equal(t, pipeline.KindInvalidSource, pipeline.KindOf(err))
	assert.Equal(t, 0, extractor.calls)
}

func TestFetchRenamesToSanitizedTitle(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{title: "Rick Astley - Never Gonna Give You Up (Official Video)", ext: "webm", name: "raw.webm"}
	fetcher := NewFetcher(extractor, pipeline.NullLogger())

	title, path, err := fetcher.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ", dir)
	require.NoError(t, err)

	assert.Equal(t, "Rick Astley - Never Gonna Give You Up (Official Video)", title)
	assert.Equal(t, filepath.Join(dir, "Rick Astley - Never Gonna Give You Up Official Video.webm"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "raw.webm"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchEmptyTitle(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewFetcher(&fakeExtractor{title: "", name: "x.m4a"}, pipeline.NullLogger())

	title, path, err := fetcher.Fetch(context.Background(), "https://youtu.be/x", dir)
	require.NoError(t, err)

	assert.Equal(t, "Unknown Title", title)
	assert.Equal(t, filepath.Join(dir, FallbackName+".m4a"), path)
}

func TestFetchExtractorFailure(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewFetcher(&fakeExtractor{err: pipeline.ErrSizeExceeded}, pipeline.NullLogger())

	_, _, err := fetcher.Fetch(context.Background(), "https://youtu.be/x", dir)

	assert.Equal(t, pipeline.KindFetchFailed, pipeline.KindOf(err))
	assert.ErrorIs(t, err, pipeline.ErrSizeExceeded)
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial downloads should be discarded")
}

func TestFetchMissingDownload(t *testing.T) {
	dir := t.TempDir()
	extractor := extractorFunc(func(ctx context.Context, sourceURL, dir string) (*Extraction, error) {
		return &Extraction{Title: "Song", Ext: "m4a", Path: filepath.Join(dir, "gone.m4a")}, nil
	})
	fetcher := NewFetcher(extractor, pipeline.NullLogger())

	_, _, err := fetcher.Fetch(context.Background(), "https://youtu.be/x", dir)

	assert.Equal(t, pipeline.KindFetchFailed, pipeline.KindOf(err))
	assert.False(t, errors.Is(err, pipeline.ErrSizeExceeded))
}

type extractorFunc func(ctx context.Context, sourceURL, dir string) (*Extraction, error)

func (f extractorFunc) Extract(ctx context.Context, sourceURL, dir string) (*Extraction, error) {
	return f(ctx, sourceURL, dir)
}
