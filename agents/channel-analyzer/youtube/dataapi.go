package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"video-analyzer/internal/models"
	"video-analyzer/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrNoCredentials is returned when neither an API key nor an OAuth client is configured.
var ErrNoCredentials = errors.New("no YouTube Data API credentials configured")

var isoDurationRE = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// DataAPISource fetches metadata through the YouTube Data API v3.
type DataAPISource struct {
	service     *youtube.Service
	oauthConfig *oauth2.Config
	token       *oauth2.Token
	tokenFile   string
}

// NewDataAPISource prefers a plain API key and falls back to an OAuth client
// with a cached token file.
func NewDataAPISource(ctx context.Context, cfg config.YouTubeConfig) (*DataAPISource, error) {
	if cfg.APIKey != "" {
		service, err := youtube.NewService(ctx, option.WithAPIKey(cfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		return &DataAPISource{service: service}, nil
	}
	if cfg.ClientID == "" {
		return nil, ErrNoCredentials
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
		Endpoint:     google.Endpoint,
	}

	token, err := getToken(oauthConfig, cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth token: %w", err)
	}

	tokenSource := &tokenSaver{
		config:    oauthConfig,
		token:     token,
		tokenFile: cfg.TokenFile,
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &DataAPISource{
		service:     service,
		oauthConfig: oauthConfig,
		token:       token,
		tokenFile:   cfg.TokenFile,
	}, nil
}

func (d *DataAPISource) Name() string {
	return "data api"
}

func (d *DataAPISource) FetchDetails(ctx context.Context, videoID string) (*models.Video, error) {
	resp, err := d.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	return videoFromAPI(resp.Items[0]), nil
}

func videoFromAPI(item *youtube.Video) *models.Video {
	video := &models.Video{
		ID:        item.Id,
		URL:       watchURL(item.Id),
		Thumbnail: thumbnailURL(item.Id),
	}

	if s := item.Snippet; s != nil {
		video.Title = s.Title
		video.Description = s.Description
		video.PublishDate = s.PublishedAt
		if s.Thumbnails != nil {
			for _, thumb := range []*youtube.Thumbnail{s.Thumbnails.Maxres, s.Thumbnails.High, s.Thumbnails.Default} {
				if thumb != nil && thumb.Url != "" {
					video.Thumbnail = thumb.Url
					break
				}
			}
		}
	}

	if item.ContentDetails != nil && item.ContentDetails.Duration != "" {
		seconds := parseDurationSeconds(item.ContentDetails.Duration)
		video.Duration = &seconds
	}

	if item.Statistics != nil {
		views := int64(item.Statistics.ViewCount)
		video.ViewCount = &views
	}

	return video
}

// RefreshToken proactively refreshes an OAuth token before a scheduled run.
// It is a no-op for API key access.
func (d *DataAPISource) RefreshToken() error {
	if d.oauthConfig == nil {
		return nil
	}

	newToken, err := d.oauthConfig.TokenSource(context.Background(), d.token).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != d.token.AccessToken {
		log.Println("Token refreshed, saving to file")
		d.token = newToken
		if err := saveToken(d.tokenFile, newToken); err != nil {
			return fmt.Errorf("failed to save refreshed token: %w", err)
		}
	}
	return nil
}

// tokenSaver persists every refreshed token so it survives restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		log.Println("Token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: Failed to save refreshed token: %v", err)
		}
	}

	return newToken, nil
}

// deviceFlow is swapped out in tests.
var deviceFlow = getTokenWithDeviceFlow

// getToken loads a cached token, keeping expired ones that carry a refresh
// token, and only starts the device flow when nothing usable is on disk.
func getToken(config *oauth2.Config, tokenFile string) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		if tok.RefreshToken != "" {
			log.Printf("Loaded token from file (expires: %v)", tok.Expiry)
			return tok, nil
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	log.Println("Getting new token from web...")
	tok, err = deviceFlow(config)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			log.Printf("Device authorization response failed (%s): %s", retrieveErr.Response.Status, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		log.Printf("Warning: Failed to save token: %v", err)
	}
	return tok, nil
}

func getTokenWithDeviceFlow(config *oauth2.Config) (*oauth2.Token, error) {
	ctx := context.Background()

	resp, err := config.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Printf("YOUTUBE DEVICE AUTHORIZATION REQUIRED\n")
	fmt.Printf("%s\n", strings.Repeat("=", 80))
	fmt.Printf("1. Visit %s in your browser.\n", resp.VerificationURI)
	fmt.Printf("2. Enter this code when prompted: %s\n\n", resp.UserCode)
	fmt.Printf("Waiting for authorization to complete... (Ctrl+C to cancel)\n")

	tok, err := config.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}

// parseDurationSeconds parses ISO 8601 durations such as PT1H2M3S.
func parseDurationSeconds(duration string) int {
	matches := isoDurationRE.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var total int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		if n, err := strconv.Atoi(matches[i+1]); err == nil {
			total += n * unit
		}
	}
	return total
}
