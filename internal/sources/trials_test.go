package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const trialsJSON = `{
  "studies": [
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT01234567", "briefTitle": "Gene Therapy for Fabry Disease"},
        "statusModule": {"overallStatus": "RECRUITING", "startDateStruct": {"date": "2024-02-01"}},
        "sponsorCollaboratorsModule": {"leadSponsor": {"name": "University Hospital"}},
        "descriptionModule": {"briefSummary": "A phase 2 study of AAV-mediated gene therapy."},
        "conditionsModule": {"conditions": ["Fabry Disease"], "keywords": ["gene therapy", "AAV"]},
        "designModule": {"studyType": "INTERVENTIONAL", "phases": ["PHASE2"], "enrollmentInfo": {"count": 24}},
        "armsInterventionsModule": {"interventions": [{"type": "GENETIC", "name": "AAV9-GLA"}]},
        "eligibilityModule": {"sex": "ALL", "minimumAge": "18 Years", "maximumAge": "65 Years"}
      }
    }
  ]
}`

func TestClinicalTrialsFetchAndSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "fabry disease", r.URL.Query().Get("query.cond"))
		require.Equal(t, "5", r.URL.Query().Get("pageSize"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(trialsJSON))
	}))
	defer srv.Close()

	src := NewClinicalTrials(5, srv.Client())
	src.BaseURL = srv.URL

	digest, err := src.FetchAndSummarize(context.Background(), "fabry disease")
	require.NoError(t, err)

	require.Contains(t, digest, "=== Clinical Trial Summary ===")
	require.Contains(t, digest, "NCT ID: NCT01234567")
	require.Contains(t, digest, "Status: RECRUITING")
	require.Contains(t, digest, "Sponsor: University Hospital")
	require.Contains(t, digest, "Phase: PHASE2")
	require.Contains(t, digest, "Enrollment: 24 participants")
	require.Contains(t, digest, "- GENETIC: AAV9-GLA")
	require.Contains(t, digest, "Gender: ALL")
	require.Contains(t, digest, "Age: 18 Years - 65 Years")
}

func TestClinicalTrialsNoStudies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"studies": []}`))
	}))
	defer srv.Close()

	src := NewClinicalTrials(5, srv.Client())
	src.BaseURL = srv.URL

	digest, err := src.FetchAndSummarize(context.Background(), "anything")
	require.NoError(t, err)
	require.Empty(t, digest)
}

func TestClinicalTrialsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	src := NewClinicalTrials(5, srv.Client())
	src.BaseURL = srv.URL

	_, err := src.FetchAndSummarize(context.Background(), "anything")
	require.Error(t, err)
}
