package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"video-analyzer/internal/models"
)

const (
	keywordMatchConfidence = 0.9
	keywordMissConfidence  = 0.2
	// The model's free text is not mined for a score.
	generativeConfidence = 0.7

	transcriptPromptChars = 500
	answerWindow          = 10
)

// Classifier labels videos as relevant or not, either by keyword match on the
// title or by asking a Generator, falling back to keywords when allowed.
type Classifier struct {
	generator Generator
	keywords  []string
	fallback  bool
}

// NewKeywordClassifier never calls a model.
func NewKeywordClassifier(keywords []string) *Classifier {
	return &Classifier{keywords: keywords, fallback: true}
}

// NewClassifier wraps a generator built by newGenerator. If construction
// fails and fallback is enabled the classifier stays in keyword mode for its
// whole lifetime; without fallback the construction error is returned.
func NewClassifier(keywords []string, fallback bool, newGenerator func() (Generator, error)) (*Classifier, error) {
	c := &Classifier{keywords: keywords, fallback: fallback}
	if newGenerator == nil {
		return c, nil
	}

	generator, err := newGenerator()
	if err != nil {
		if !fallback {
			return nil, fmt.Errorf("failed to create generative classifier: %w", err)
		}
		log.Printf("classifier: generative backend unavailable (%v); falling back to keyword classification", err)
		return c, nil
	}

	c.generator = generator
	return c, nil
}

// UsesModel reports whether classification goes through the generator.
func (c *Classifier) UsesModel() bool {
	return c.generator != nil
}

// Classify labels one video. description and transcript may be empty.
func (c *Classifier) Classify(ctx context.Context, videoID, title, description, transcript string) (*models.Classification, error) {
	if c.generator == nil {
		return c.classifyByKeyword(videoID, title), nil
	}

	prompt := buildPrompt(title, description, transcript)
	response, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		if c.fallback {
			log.Printf("classifier: model call failed for %s, using keywords: %v", videoID, err)
			return c.classifyByKeyword(videoID, title), nil
		}
		return nil, fmt.Errorf("failed to classify video %s: %w", videoID, err)
	}

	response = strings.TrimSpace(strings.Replace(response, prompt, "", 1))
	head := strings.ToLower(TruncateRunes(response, answerWindow))

	return &models.Classification{
		VideoID:    videoID,
		IsRelevant: strings.Contains(head, "yes"),
		Confidence: generativeConfidence,
		Reasoning:  response,
	}, nil
}

func (c *Classifier) classifyByKeyword(videoID, title string) *models.Classification {
	lower := strings.ToLower(title)
	for _, kw := range c.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return &models.Classification{
				VideoID:    videoID,
				IsRelevant: true,
				Confidence: keywordMatchConfidence,
				Reasoning:  "keyword match found: " + title,
			}
		}
	}
	return &models.Classification{
		VideoID:    videoID,
		IsRelevant: false,
		Confidence: keywordMissConfidence,
		Reasoning:  "no GPU-related keywords found",
	}
}

func buildPrompt(title, description, transcript string) string {
	var content strings.Builder
	fmt.Fprintf(&content, "Title: %s\n", title)
	if description != "" {
		fmt.Fprintf(&content, "Description: %s\n", description)
	}
	if transcript != "" {
		if snippet := TruncateRunes(transcript, transcriptPromptChars); snippet != transcript {
			fmt.Fprintf(&content, "Transcript snippet: %s...\n", snippet)
		} else {
			fmt.Fprintf(&content, "Transcript: %s\n", transcript)
		}
	}

	return fmt.Sprintf(`Analyze the following YouTube video content and determine if it's primarily about GPUs or graphics cards.

%s
Consider specific GPU models, graphics technologies, performance metrics, or gaming graphics discussions as GPU-related.

Question: Is this content primarily about GPUs, graphics cards, or graphics technology?
Answer with 'Yes' or 'No', followed by your confidence score (0-100%%) and a brief explanation.
`, content.String())
}

// TruncateRunes returns at most n characters of s.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
