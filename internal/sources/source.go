package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source is one external biomedical data provider. FetchAndSummarize turns a
// query into a formatted textual digest. An empty digest means the provider
// had nothing relevant; a non-nil error means the fetch or parse failed.
// Either way the caller gets no partial data to deal with.
type Source interface {
	Name() string
	FetchAndSummarize(ctx context.Context, query string) (string, error)
}

func readBody(res *http.Response) ([]byte, error) {
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
