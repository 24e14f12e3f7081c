package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	ytdl "github.com/kkdai/youtube/v2"

	"video-analyzer/shared/storage"
)

func TestCaptionsToText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "WebVTT",
			raw: "WEBVTT\nKind: captions\nLanguage: en\n\n00:00:00.000 --> 00:00:02.000\nhello <c>there</c>\n\n00:00:02.000 --> 00:00:04.000\ngeneral kenobi\n",
			want: "hello there general kenobi",
		},
		{
			name: "SRT",
			raw:  "1\r\n00:00:00,000 --> 00:00:01,000\r\nfirst line\r\n\r\n2\r\n00:00:01,000 --> 00:00:02,000\r\nsecond line\r\n",
			want: "first line second line",
		},
		{
			name: "Only headers",
			raw:  "WEBVTT\n\n",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CaptionsToText(tt.raw); got != tt.want {
				t.Errorf("CaptionsToText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPickTrack(t *testing.T) {
	manualEN := CaptionTrack{BaseURL: "manual", LanguageCode: "en"}
	autoEN := CaptionTrack{BaseURL: "auto", LanguageCode: "en", Kind: "asr"}
	german := CaptionTrack{BaseURL: "de", LanguageCode: "de"}

	tests := []struct {
		name   string
		tracks []CaptionTrack
		want   string
		ok     bool
	}{
		{"Manual English wins", []CaptionTrack{german, autoEN, manualEN}, "manual", true},
		{"Auto English next", []CaptionTrack{german, autoEN}, "auto", true},
		{"First track otherwise", []CaptionTrack{german}, "de", true},
		{"No tracks", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickTrack(tt.tracks)
			if ok != tt.ok || got.BaseURL != tt.want {
				t.Errorf("pickTrack() = %q, %v, want %q, %v", got.BaseURL, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestKkdaiCaptionsDownloadsPreferredTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "en" || r.URL.Query().Get("fmt") != "vtt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("WEBVTT\n\n00:00:00.000 --> 00:00:01.000\ntensor cores\n"))
	}))
	defer srv.Close()

	captions := &KkdaiCaptions{
		client: &fakeResolver{video: &ytdl.Video{CaptionTracks: []ytdl.CaptionTrack{
			{BaseURL: srv.URL + "/api/timedtext?lang=de", LanguageCode: "de"},
			{BaseURL: srv.URL + "/api/timedtext?lang=en", LanguageCode: "en", Kind: "asr"},
		}}},
		httpClient: srv.Client(),
	}

	text, err := NewCaptionSource(captions).FetchTranscript(context.Background(), "v")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if text != "tensor cores" {
		t.Errorf("FetchTranscript() = %q, want %q", text, "tensor cores")
	}
}

func TestKkdaiCaptionsNoTracks(t *testing.T) {
	captions := &KkdaiCaptions{client: &fakeResolver{video: &ytdl.Video{}}, httpClient: http.DefaultClient}
	if _, err := captions.Captions(context.Background(), "v"); !errors.Is(err, ErrNoCaptions) {
		t.Errorf("Captions() error = %v, want ErrNoCaptions", err)
	}
}

func TestTranscriptFetcherCascade(t *testing.T) {
	cache := storage.NewCache(t.TempDir())
	broken := &fakeTranscriptSource{name: "captions", err: errors.New("player response blocked")}
	page := &fakeTranscriptSource{name: "browser", text: "  from the page  "}

	fetcher := NewTranscriptFetcher(cache, broken, page)

	text, ok := fetcher.FetchTranscript(context.Background(), "t1")
	if !ok || text != "from the page" {
		t.Fatalf("FetchTranscript() = %q, %v", text, ok)
	}

	text, ok = fetcher.FetchTranscript(context.Background(), "t1")
	if !ok || text != "from the page" {
		t.Errorf("cached FetchTranscript() = %q, %v", text, ok)
	}
	if page.calls != 1 {
		t.Errorf("browser source called %d times, want 1", page.calls)
	}
}

func TestTranscriptFetcherAbsentIsNotAnError(t *testing.T) {
	fetcher := NewTranscriptFetcher(nil,
		&fakeTranscriptSource{name: "captions", err: errors.New("timeout")},
		&fakeTranscriptSource{name: "browser", err: errors.New("menu missing")},
	)
	if text, ok := fetcher.FetchTranscript(context.Background(), "t2"); ok || text != "" {
		t.Errorf("FetchTranscript() = %q, %v, want absent", text, ok)
	}
}

func TestTranscriptFetcherNoCaptionsStopsCascade(t *testing.T) {
	cache := storage.NewCache(t.TempDir())
	captions := &fakeTranscriptSource{name: "captions", err: fmt.Errorf("video t3: %w", ErrNoCaptions)}
	page := &fakeTranscriptSource{name: "browser", text: "scraped"}

	fetcher := NewTranscriptFetcher(cache, captions, page)

	if text, ok := fetcher.FetchTranscript(context.Background(), "t3"); ok || text != "" {
		t.Errorf("FetchTranscript() = %q, %v, want absent", text, ok)
	}
	if captions.calls != 1 {
		t.Errorf("captions source called %d times, want 1", captions.calls)
	}
	if page.calls != 0 {
		t.Errorf("browser source called %d times after ErrNoCaptions, want 0", page.calls)
	}
	if _, ok := cache.GetTranscript("t3"); ok {
		t.Error("absent transcript should not be cached")
	}
}
