package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sharanm/rare-disease-radar/backend/internal/format"
)

// NIH searches funded projects in the NIH RePORTER database.
type NIH struct {
	BaseURL    string
	MaxResults int
	Client     *http.Client
	now        func() time.Time
}

// NewNIH builds a grants source against the RePORTER v2 search API.
func NewNIH(maxResults int, client *http.Client) *NIH {
	return &NIH{
		BaseURL:    "https://api.reporter.nih.gov/v2/projects/search",
		MaxResults: maxResults,
		Client:     client,
		now:        time.Now,
	}
}

func (n *NIH) Name() string { return "nih" }

// FetchAndSummarize searches the last five fiscal years and formats the
// projects with a funding overview.
func (n *NIH) FetchAndSummarize(ctx context.Context, query string) (string, error) {
	year := n.now().Year()
	fiscalYears := []int{year, year - 1, year - 2, year - 3, year - 4}

	payload := map[string]any{
		"criteria": map[string]any{
			"text_search_criteria": []map[string]string{{
				"search_field": "all",
				"search_text":  query,
			}},
			"fiscal_years": fiscalYears,
		},
		"include_fields": []string{
			"fiscal_year",
			"award_amount",
			"project_title",
			"abstract_text",
			"ContactPIName",
			"OrganizationName",
		},
		"offset":     0,
		"limit":      n.MaxResults,
		"sort_field": "fiscal_year",
		"sort_order": "desc",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal nih search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := n.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("nih fetch: %w", err)
	}

	body, err := readBody(res)
	if err != nil {
		return "", fmt.Errorf("nih fetch: %w", err)
	}

	projects, total, err := parseNIHProjects(body)
	if err != nil {
		return "", err
	}
	return formatProjectSummary(projects, total), nil
}

type nihProject struct {
	Title        string  `json:"project_title"`
	PIName       string  `json:"contact_pi_name"`
	Organization string  `json:"organization_name"`
	Abstract     string  `json:"abstract_text"`
	AwardAmount  float64 `json:"award_amount"`
	FiscalYear   int     `json:"fiscal_year"`
}

func parseNIHProjects(body []byte) ([]nihProject, int, error) {
	var payload struct {
		Results []nihProject `json:"results"`
		Meta    struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, 0, fmt.Errorf("decode nih response: %w", err)
	}
	return payload.Results, payload.Meta.Total, nil
}

func formatProjectSummary(projects []nihProject, total int) string {
	if len(projects) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== NIH Rare Disease Research Projects ===\n")
	fmt.Fprintf(&b, "Database Total: %s projects\n", format.Thousands(total))
	fmt.Fprintf(&b, "Showing: Latest %d projects\n\n", len(projects))

	totalFunding := 0.0
	largest := 0.0
	latestYear := 0

	for i, project := range projects {
		totalFunding += project.AwardAmount
		if project.AwardAmount > largest {
			largest = project.AwardAmount
		}
		if project.FiscalYear > latestYear {
			latestYear = project.FiscalYear
		}

		fmt.Fprintf(&b, "Project %d | FY%d | %s\n", i+1, project.FiscalYear, format.Currency(project.AwardAmount))
		b.WriteString(strings.Repeat("-", 65) + "\n")

		title := project.Title
		if title == "" {
			title = "No Title Available"
		}
		b.WriteString(format.Wrap(title, 65, "") + "\n")

		fmt.Fprintf(&b, "\nPI: %s\n", orNotAvailable(project.PIName))
		fmt.Fprintf(&b, "Institution: %s\n", orNotAvailable(project.Organization))

		if abstract := strings.TrimSpace(project.Abstract); abstract != "" {
			b.WriteString("\nAbstract Preview:\n")
			b.WriteString(format.Wrap(format.TruncateAbstract(abstract), 65, "  "))
			b.WriteString("\n")
		}

		b.WriteString("\n" + strings.Repeat("-", 65) + "\n\n")
	}

	b.WriteString(format.SectionHeader("Funding Overview", '-') + "\n")
	fmt.Fprintf(&b, "Total Funding: %s\n", format.Currency(totalFunding))
	fmt.Fprintf(&b, "Average Award: %s\n", format.Currency(totalFunding/float64(len(projects))))
	fmt.Fprintf(&b, "Largest Award: %s\n", format.Currency(largest))
	if latestYear > 0 {
		fmt.Fprintf(&b, "Latest Fiscal Year: %d\n", latestYear)
	}

	return b.String()
}

func orNotAvailable(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Not Available"
	}
	return value
}
