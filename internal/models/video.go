package models

// Video is the metadata record for one video. ID, Title and URL are required;
// everything else may be missing depending on which source produced it.
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PublishDate string `json:"publish_date,omitempty"` // raw source format, parsed on demand
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail"`
	Duration    *int   `json:"duration,omitempty"` // seconds
	ViewCount   *int64 `json:"view_count,omitempty"`
}

// Complete reports whether the required fields are populated.
func (v *Video) Complete() bool {
	return v != nil && v.ID != "" && v.Title != "" && v.URL != ""
}

type Classification struct {
	VideoID    string  `json:"video_id"`
	IsRelevant bool    `json:"is_relevant"`
	Confidence float64 `json:"confidence"` // 0-1
	Reasoning  string  `json:"reasoning"`
}

// AnalysisRecord is one entry of a persisted batch file.
type AnalysisRecord struct {
	VideoID           string  `json:"video_id"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
	PublishDate       string  `json:"publish_date,omitempty"`
	URL               string  `json:"url"`
	Thumbnail         string  `json:"thumbnail,omitempty"`
	Duration          *int    `json:"duration,omitempty"`
	ViewCount         *int64  `json:"view_count,omitempty"`
	IsRelevant        bool    `json:"is_relevant"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
	TranscriptSnippet string  `json:"transcript_snippet,omitempty"`
	HasTranscript     bool    `json:"has_transcript"`
}

// NewAnalysisRecord merges a video with its classification.
func NewAnalysisRecord(video *Video, c *Classification) AnalysisRecord {
	return AnalysisRecord{
		VideoID:     video.ID,
		Title:       video.Title,
		Description: video.Description,
		PublishDate: video.PublishDate,
		URL:         video.URL,
		Thumbnail:   video.Thumbnail,
		Duration:    video.Duration,
		ViewCount:   video.ViewCount,
		IsRelevant:  c.IsRelevant,
		Confidence:  c.Confidence,
		Reasoning:   c.Reasoning,
	}
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	Channel    string           `json:"channel"`
	OutputFile string           `json:"output_file"`
	Records    []AnalysisRecord `json:"records"`
}

// Relevant returns the records flagged as relevant.
func (r *RunReport) Relevant() []AnalysisRecord {
	var out []AnalysisRecord
	for _, rec := range r.Records {
		if rec.IsRelevant {
			out = append(out, rec)
		}
	}
	return out
}
