// Package report summarizes the most recent persisted batch.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"video-analyzer/internal/models"
	"video-analyzer/shared/ai"
	"video-analyzer/shared/storage"
)

const (
	topKeywords      = 20
	topConfident     = 5
	reasoningPreview = 100
	minKeywordLength = 3
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "of": true, "with": true, "is": true, "was": true, "be": true,
	"as": true, "this": true, "that": true, "it": true, "by": true, "from": true, "not": true,
	"what": true, "all": true, "are": true, "but": true, "so": true, "no": true, "yes": true,
	"we": true, "you": true, "i": true, "he": true, "she": true, "they": true, "how": true,
	"why": true, "when": true, "where": true, "which": true, "who": true, "or": true,
}

type KeywordCount struct {
	Word  string
	Count int
}

type Summary struct {
	Source         string
	Total          int
	Relevant       int
	NonRelevant    int
	RelevantPct    float64
	NonRelevantPct float64
	Keywords       []KeywordCount
	TopConfident   []models.AnalysisRecord
}

// Load summarizes the newest final batch in dir.
func Load(dir, prefix string) (*Summary, error) {
	records, path, err := storage.LoadLatestBatch(dir, prefix)
	if err != nil {
		return nil, err
	}
	return Summarize(records, path), nil
}

func Summarize(records []models.AnalysisRecord, source string) *Summary {
	s := &Summary{Source: source, Total: len(records)}

	var relevant []models.AnalysisRecord
	for _, rec := range records {
		if rec.IsRelevant {
			relevant = append(relevant, rec)
		}
	}
	s.Relevant = len(relevant)
	s.NonRelevant = s.Total - s.Relevant
	if s.Total > 0 {
		s.RelevantPct = float64(s.Relevant) / float64(s.Total) * 100
		s.NonRelevantPct = float64(s.NonRelevant) / float64(s.Total) * 100
	}

	s.Keywords = ExtractKeywords(relevant, topKeywords)

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Confidence > relevant[j].Confidence
	})
	if len(relevant) > topConfident {
		relevant = relevant[:topConfident]
	}
	s.TopConfident = relevant
	return s
}

// ExtractKeywords counts words across title, description and transcript
// snippet, skipping stop words and words shorter than three characters.
// Ties are broken alphabetically.
func ExtractKeywords(records []models.AnalysisRecord, n int) []KeywordCount {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, word := range tokenize(rec.Title + " " + rec.Description + " " + rec.TranscriptSnippet) {
			if stopWords[word] || utf8.RuneCountInString(word) < minKeywordLength {
				continue
			}
			counts[word]++
		}
	}

	keywords := make([]KeywordCount, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, KeywordCount{Word: word, Count: count})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})
	if n > 0 && len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// Render writes the summary as tables. Rounded borders are used on a terminal.
func Render(w io.Writer, s *Summary) {
	style := table.StyleDefault
	if isTerminal(w) {
		style = table.StyleRounded
	}

	fmt.Fprintf(w, "Loaded results from %s\n\n", s.Source)
	if s.Total == 0 {
		fmt.Fprintln(w, "No results to analyze")
		return
	}

	overview := newTable(style, fmt.Sprintf("ANALYSIS OF %d VIDEOS", s.Total), table.Row{"Category", "Videos", "Share"})
	overview.AppendRow(table.Row{"Relevant", s.Relevant, fmt.Sprintf("%.1f%%", s.RelevantPct)})
	overview.AppendRow(table.Row{"Not relevant", s.NonRelevant, fmt.Sprintf("%.1f%%", s.NonRelevantPct)})
	overview.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	fmt.Fprintln(w, overview.Render())

	if len(s.Keywords) > 0 {
		keywords := newTable(style, fmt.Sprintf("TOP %d KEYWORDS IN RELEVANT VIDEOS", topKeywords), table.Row{"Keyword", "Count"})
		for _, kw := range s.Keywords {
			keywords.AppendRow(table.Row{kw.Word, kw.Count})
		}
		keywords.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
		fmt.Fprintln(w)
		fmt.Fprintln(w, keywords.Render())
	}

	confident := newTable(style, "MOST CONFIDENT CLASSIFICATIONS", table.Row{"Title", "Confidence", "URL", "Reasoning"})
	for _, rec := range s.TopConfident {
		confident.AppendRow(table.Row{rec.Title, fmt.Sprintf("%.2f", rec.Confidence), rec.URL, previewReasoning(rec.Reasoning)})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, confident.Render())
}

func newTable(style table.Style, title string, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.SetTitle(title)
	tw.AppendHeader(header)
	return tw
}

func previewReasoning(reasoning string) string {
	return ai.TruncateRunes(reasoning, reasoningPreview) + "..."
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
