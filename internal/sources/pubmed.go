package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sharanm/rare-disease-radar/backend/internal/format"
)

// pubmedPause is the courtesy delay NCBI asks for between E-utilities calls.
const pubmedPause = 500 * time.Millisecond

// PubMed fetches article metadata from the NCBI E-utilities API. A search
// call resolves the query into PMIDs, a second call fetches the article XML.
type PubMed struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Client     *http.Client
}

// NewPubMed builds a PubMed source against the production E-utilities host.
func NewPubMed(apiKey string, maxResults int, client *http.Client) *PubMed {
	return &PubMed{
		BaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		APIKey:     apiKey,
		MaxResults: maxResults,
		Client:     client,
	}
}

func (p *PubMed) Name() string { return "pubmed" }

// FetchAndSummarize runs the esearch/efetch pair and formats the articles.
func (p *PubMed) FetchAndSummarize(ctx context.Context, query string) (string, error) {
	xmlContent, err := p.fetch(ctx, query)
	if err != nil {
		return "", err
	}
	if xmlContent == nil {
		return "", nil
	}

	articles, err := parsePubMedArticles(xmlContent)
	if err != nil {
		return "", err
	}
	return formatArticleSummary(articles), nil
}

func (p *PubMed) fetch(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(p.MaxResults))
	params.Set("retmode", "json")
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	searchBody, err := p.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("pubmed search: %w", err)
	}

	var search struct {
		Result struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(searchBody, &search); err != nil {
		return nil, fmt.Errorf("decode pubmed search: %w", err)
	}

	if len(search.Result.IDList) == 0 {
		return nil, nil
	}

	// NCBI rate-limit courtesy pause between the two chained calls.
	time.Sleep(pubmedPause)

	params = url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(search.Result.IDList, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	fetchBody, err := p.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("pubmed fetch: %w", err)
	}
	return fetchBody, nil
}

func (p *PubMed) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	return readBody(res)
}

type pubmedArticle struct {
	PMID     string         `xml:"MedlineCitation>PMID"`
	Title    string         `xml:"MedlineCitation>Article>ArticleTitle"`
	Journal  string         `xml:"MedlineCitation>Article>Journal>Title"`
	Year     string         `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
	Month    string         `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Month"`
	Abstract string         `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	Keywords []string       `xml:"MedlineCitation>KeywordList>Keyword"`
	Authors  []pubmedAuthor `xml:"MedlineCitation>Article>AuthorList>Author"`
	IDs      []pubmedID     `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

func parsePubMedArticles(content []byte) ([]pubmedArticle, error) {
	var set struct {
		Articles []pubmedArticle `xml:"PubmedArticle"`
	}
	if err := xml.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("parse pubmed xml: %w", err)
	}
	return set.Articles, nil
}

func (a pubmedArticle) doi() string {
	for _, id := range a.IDs {
		if id.Type == "doi" {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

func (a pubmedArticle) publicationDate() string {
	return strings.TrimSpace(a.Year + " " + a.Month)
}

func (a pubmedArticle) authorNames() []string {
	var names []string
	for _, author := range a.Authors {
		if author.ForeName != "" && author.LastName != "" {
			names = append(names, author.ForeName+" "+author.LastName)
		}
	}
	return names
}

func formatArticleSummary(articles []pubmedArticle) string {
	if len(articles) == 0 {
		return ""
	}

	var b strings.Builder
	for _, article := range articles {
		b.WriteString("\n=== Article Summary ===\n")
		fmt.Fprintf(&b, "Title: %s\n", format.OrNA(article.Title))
		fmt.Fprintf(&b, "Authors: %s\n", format.JoinOrNA(article.authorNames()))
		fmt.Fprintf(&b, "Journal: %s\n", format.OrNA(article.Journal))
		fmt.Fprintf(&b, "Publication Date: %s\n", format.OrNA(article.publicationDate()))

		if len(article.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(article.Keywords, ", "))
		}

		if article.Abstract != "" {
			b.WriteString("\nAbstract:\n")
			b.WriteString(format.Wrap(article.Abstract, 80, ""))
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "\nDOI: %s\n", format.OrNA(article.doi()))
	}

	return b.String()
}
