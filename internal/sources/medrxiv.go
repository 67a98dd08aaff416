package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sharanm/rare-disease-radar/backend/internal/format"
)

// rareDiseaseKeywords drive the client-side relevance filter; the medRxiv API
// has no subject filter of its own.
var rareDiseaseKeywords = []string{
	"rare disease", "rare disorder", "orphan disease", "rare genetic",
	"rare mutation", "rare syndrome", "rare condition",
	"ultra-rare", "rare inherited", "rare metabolic",
}

// MedRxiv pulls recent preprints from the medRxiv details API and keeps only
// papers matching the rare-disease keyword list.
type MedRxiv struct {
	BaseURL string
	Window  time.Duration
	Client  *http.Client
	now     func() time.Time
}

// NewMedRxiv builds a preprint source covering the past year of submissions.
func NewMedRxiv(client *http.Client) *MedRxiv {
	return &MedRxiv{
		BaseURL: "https://api.biorxiv.org/details/medrxiv",
		Window:  365 * 24 * time.Hour,
		Client:  client,
		now:     time.Now,
	}
}

func (m *MedRxiv) Name() string { return "medrxiv" }

// FetchAndSummarize retrieves the preprint window and formats the rare-disease
// subset. The query is ignored: filtering is keyword-driven.
func (m *MedRxiv) FetchAndSummarize(ctx context.Context, _ string) (string, error) {
	end := m.now()
	start := end.Add(-m.Window)
	url := fmt.Sprintf("%s/%s/%s/0", m.BaseURL, start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	res, err := m.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("medrxiv fetch: %w", err)
	}

	body, err := readBody(res)
	if err != nil {
		return "", fmt.Errorf("medrxiv fetch: %w", err)
	}

	papers, err := parseMedRxivPapers(body)
	if err != nil {
		return "", err
	}
	return formatPaperSummary(papers), nil
}

type medrxivPaper struct {
	Title       string `json:"title"`
	DOI         string `json:"doi"`
	Authors     string `json:"authors"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Abstract    string `json:"abstract"`
	Institution string `json:"author_corresponding_institution"`
}

func parseMedRxivPapers(body []byte) ([]medrxivPaper, error) {
	var payload struct {
		Collection []medrxivPaper `json:"collection"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode medrxiv response: %w", err)
	}

	var kept []medrxivPaper
	for _, paper := range payload.Collection {
		if isRareDiseasePaper(paper) {
			kept = append(kept, paper)
		}
	}
	return kept, nil
}

func isRareDiseasePaper(paper medrxivPaper) bool {
	haystack := strings.ToLower(paper.Title + " " + paper.Abstract)
	for _, keyword := range rareDiseaseKeywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func formatPaperSummary(papers []medrxivPaper) string {
	if len(papers) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Rare Disease Research Papers (Total: %d) ===\n\n", len(papers))

	for i, paper := range papers {
		fmt.Fprintf(&b, "Paper %d:\n", i+1)
		b.WriteString(strings.Repeat("-", 50) + "\n")
		fmt.Fprintf(&b, "Title: %s\n", format.OrNA(paper.Title))
		fmt.Fprintf(&b, "Authors: %s\n", format.OrNA(paper.Authors))
		fmt.Fprintf(&b, "Date: %s\n", format.OrNA(paper.Date))
		fmt.Fprintf(&b, "Category: %s\n", format.OrNA(paper.Category))
		fmt.Fprintf(&b, "Institution: %s\n", format.OrNA(paper.Institution))
		fmt.Fprintf(&b, "DOI: %s\n", format.OrNA(paper.DOI))

		if paper.Abstract != "" {
			b.WriteString("\nAbstract:\n")
			b.WriteString(format.Wrap(paper.Abstract, 80, ""))
			b.WriteString("\n")
		}

		b.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")
	}

	return b.String()
}
