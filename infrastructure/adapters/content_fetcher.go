package adapters

import (
	"bytes"
	"fmt"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"io"
	"net/http"
)

const defaultChunkSize = 1024

// maxErrorBodySize bounds how much of a failed response is kept for logging.
const maxErrorBodySize = 4096

type FetchedContent struct {
	Payload     []byte
	ContentType string
	Chunks      int
}

type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP request returned non-OK status code: %d", e.StatusCode)
}

type ContentFetcher interface {
	FetchContent(req *http.Request) (*FetchedContent, error)
}

type contentFetcher struct {
	logger    outbound.LoggerPort
	client    *http.Client
	chunkSize int
}

func NewContentFetcher(logger outbound.LoggerPort, client *http.Client) ContentFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &contentFetcher{
		logger:    logger,
		client:    client,
		chunkSize: defaultChunkSize,
	}
}

// FetchContent performs req and reads the body chunk by chunk. The payload is
// only returned once the body has been read to EOF.
func (c *contentFetcher) FetchContent(req *http.Request) (*FetchedContent, error) {
	res, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to send the HTTP request", map[string]interface{}{
			"method": req.Method,
			"URL":    redactedURL(req),
		})
		return nil, err
	}

	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.ErrorWithFields(err, "Failed to close the response body", map[string]interface{}{
				"method": req.Method,
				"URL":    redactedURL(req),
			})
		}
	}(res.Body)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		bodyPayload, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		c.logger.WarnWithFields("HTTP request returned non-OK status code", map[string]interface{}{
			"method":  req.Method,
			"URL":     redactedURL(req),
			"status":  res.StatusCode,
			"message": string(bodyPayload),
		})
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, Body: string(bodyPayload)}
	}

	var buf bytes.Buffer
	chunk := make([]byte, c.chunkSize)
	chunks := 0
	for {
		n, err := res.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			chunks++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			c.logger.ErrorWithFields(err, "Failed to read the response body", map[string]interface{}{
				"method":     req.Method,
				"URL":        redactedURL(req),
				"bytes_read": buf.Len(),
			})
			return nil, err
		}
	}

	return &FetchedContent{
		Payload:     buf.Bytes(),
		ContentType: res.Header.Get("Content-Type"),
		Chunks:      chunks,
	}, nil
}

func redactedURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
