package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
)

// TikaClient talks to the conversion-service collaborator: a generic
// document-to-text extraction service reachable over a local network
// endpoint. The service is a black box; we only send bytes and read
// plain text back.
type TikaClient struct {
	url    string
	client *http.Client
}

// NewTikaClient creates a conversion-service client for the given
// endpoint (e.g. http://localhost:9998/tika).
func NewTikaClient(url string, timeout time.Duration) *TikaClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TikaClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// ExtractText sends the file to the conversion service and returns the
// extracted plain text, trimmed. Retryability follows the error
// classification: connection failures and 503 are collaborator errors
// and get exponential backoff, everything else is permanent.
func (t *TikaClient) ExtractText(ctx context.Context, path string) (string, error) {
	var text string

	attempt := func() error {
		f, err := os.Open(path)
		if err != nil {
			return docerr.Wrap(docerr.ErrCodeFileNotFound, err)
		}
		defer func() { _ = f.Close() }()

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.url, f)
		if err != nil {
			return docerr.InternalError("cannot build conversion request", err)
		}
		req.Header.Set("Accept", "text/plain")
		if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
			req.Header.Set("Content-Type", ct)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return docerr.CollaboratorError("conversion request failed", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg := fmt.Sprintf("conversion service returned status %d", resp.StatusCode)
			if resp.StatusCode == http.StatusServiceUnavailable {
				// Server still warming up.
				return docerr.CollaboratorError(msg, nil)
			}
			return docerr.New(docerr.ErrCodeExtractFailed, msg, nil)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return docerr.CollaboratorError("cannot read conversion response", err)
		}
		text = strings.TrimSpace(string(body))
		return nil
	}

	operation := func() error {
		err := attempt()
		if err != nil && !docerr.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 20 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return text, nil
}
