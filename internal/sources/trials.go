package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sharanm/rare-disease-radar/backend/internal/format"
)

// ClinicalTrials queries the ClinicalTrials.gov v2 study API by condition.
type ClinicalTrials struct {
	BaseURL    string
	MaxResults int
	Client     *http.Client
}

// NewClinicalTrials builds a trial registry source against clinicaltrials.gov.
func NewClinicalTrials(maxResults int, client *http.Client) *ClinicalTrials {
	return &ClinicalTrials{
		BaseURL:    "https://clinicaltrials.gov/api/v2/studies",
		MaxResults: maxResults,
		Client:     client,
	}
}

func (c *ClinicalTrials) Name() string { return "clinical_trials" }

// FetchAndSummarize retrieves studies matching the condition and formats them.
func (c *ClinicalTrials) FetchAndSummarize(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query.cond", query)
	params.Set("pageSize", strconv.Itoa(c.MaxResults))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("clinicaltrials fetch: %w", err)
	}

	body, err := readBody(res)
	if err != nil {
		return "", fmt.Errorf("clinicaltrials fetch: %w", err)
	}

	trials, err := parseTrials(body)
	if err != nil {
		return "", err
	}
	return formatTrialSummary(trials), nil
}

type trialIntervention struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type trialStudy struct {
	Protocol struct {
		Identification struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		Status struct {
			OverallStatus   string `json:"overallStatus"`
			StartDateStruct struct {
				Date string `json:"date"`
			} `json:"startDateStruct"`
		} `json:"statusModule"`
		Sponsor struct {
			LeadSponsor struct {
				Name string `json:"name"`
			} `json:"leadSponsor"`
		} `json:"sponsorCollaboratorsModule"`
		Description struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		Conditions struct {
			Conditions []string `json:"conditions"`
			Keywords   []string `json:"keywords"`
		} `json:"conditionsModule"`
		Design struct {
			StudyType      string   `json:"studyType"`
			Phases         []string `json:"phases"`
			EnrollmentInfo struct {
				Count int `json:"count"`
			} `json:"enrollmentInfo"`
		} `json:"designModule"`
		Arms struct {
			Interventions []trialIntervention `json:"interventions"`
		} `json:"armsInterventionsModule"`
		Eligibility struct {
			Sex        string `json:"sex"`
			MinimumAge string `json:"minimumAge"`
			MaximumAge string `json:"maximumAge"`
		} `json:"eligibilityModule"`
	} `json:"protocolSection"`
}

func parseTrials(body []byte) ([]trialStudy, error) {
	var payload struct {
		Studies []trialStudy `json:"studies"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode clinicaltrials response: %w", err)
	}
	return payload.Studies, nil
}

func formatTrialSummary(trials []trialStudy) string {
	if len(trials) == 0 {
		return ""
	}

	var b strings.Builder
	for _, trial := range trials {
		p := trial.Protocol

		b.WriteString("\n=== Clinical Trial Summary ===\n")
		fmt.Fprintf(&b, "NCT ID: %s\n", format.OrNA(p.Identification.NCTID))
		fmt.Fprintf(&b, "Title: %s\n", format.OrNA(p.Identification.BriefTitle))
		fmt.Fprintf(&b, "Status: %s\n", format.OrNA(p.Status.OverallStatus))
		fmt.Fprintf(&b, "Start Date: %s\n", format.OrNA(p.Status.StartDateStruct.Date))
		fmt.Fprintf(&b, "Sponsor: %s\n", format.OrNA(p.Sponsor.LeadSponsor.Name))

		if len(p.Conditions.Conditions) > 0 {
			fmt.Fprintf(&b, "Conditions: %s\n", strings.Join(p.Conditions.Conditions, ", "))
		}
		if len(p.Conditions.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(p.Conditions.Keywords, ", "))
		}
		if len(p.Design.Phases) > 0 {
			fmt.Fprintf(&b, "Phase: %s\n", strings.Join(p.Design.Phases, ", "))
		}

		fmt.Fprintf(&b, "Enrollment: %d participants\n", p.Design.EnrollmentInfo.Count)

		if len(p.Arms.Interventions) > 0 {
			b.WriteString("\nInterventions:\n")
			for _, iv := range p.Arms.Interventions {
				fmt.Fprintf(&b, "- %s: %s\n", iv.Type, iv.Name)
			}
		}

		if p.Description.BriefSummary != "" {
			b.WriteString("\nBrief Summary:\n")
			b.WriteString(p.Description.BriefSummary)
			b.WriteString("\n")
		}

		b.WriteString("\nEligibility:\n")
		fmt.Fprintf(&b, "Gender: %s\n", format.OrNA(p.Eligibility.Sex))
		fmt.Fprintf(&b, "Age: %s - %s\n", format.OrNA(p.Eligibility.MinimumAge), format.OrNA(p.Eligibility.MaximumAge))
	}

	return b.String()
}
