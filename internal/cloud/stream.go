// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// STREAMING: Robust SSE parsing with error handling

// MaxChunkSize is the maximum allowed size for a single SSE event (256KB).
const MaxChunkSize = 256 * 1024

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is one delta delivered during a streaming generation.
// Exactly one of Text/Err is meaningful per chunk; Citations and Usage
// arrive on whichever chunk the provider attaches them to, usually the last.
type StreamChunk struct {
	Role      string
	Text      string
	Citations []Citation
	Usage     *Usage
	Err       error
}

// HasError returns true if the chunk carries an error.
func (c StreamChunk) HasError() bool {
	return c.Err != nil
}

// streamResponse is the provider's wire format for one SSE data payload.
type streamResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason      string `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata *Usage `json:"usageMetadata"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// toChunk flattens a wire response into a StreamChunk.
func (r *streamResponse) toChunk() (StreamChunk, error) {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return StreamChunk{}, fmt.Errorf("%w: %s", ErrContentBlocked, r.PromptFeedback.BlockReason)
	}

	chunk := StreamChunk{Usage: r.UsageMetadata}
	if len(r.Candidates) == 0 {
		return chunk, nil
	}

	cand := r.Candidates[0]
	chunk.Role = cand.Content.Role
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	chunk.Text = text.String()

	if cand.FinishReason == "SAFETY" || cand.FinishReason == "PROHIBITED_CONTENT" {
		return StreamChunk{}, fmt.Errorf("%w: finish reason %s", ErrContentBlocked, cand.FinishReason)
	}

	if gm := cand.GroundingMetadata; gm != nil {
		for _, gc := range gm.GroundingChunks {
			if gc.Web != nil && gc.Web.URI != "" {
				chunk.Citations = append(chunk.Citations, Citation{
					Title: gc.Web.Title,
					URI:   gc.Web.URI,
				})
			}
		}
	}

	return chunk, nil
}

// StreamError wraps a mid-stream failure, preserving partial content.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// sseReader parses Server-Sent Events from a response body.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// readEvent reads the next SSE data payload.
// Returns io.EOF when the stream ends.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte
	var total int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			total += len(data)
			if total > MaxChunkSize {
				return nil, fmt.Errorf("event too large: %d bytes", total)
			}
			dataLines = append(dataLines, data)
		}
		// Other fields (event:, id:, retry:, comments) are ignored.
	}
}

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// GenerateStream sends the conversation and streams the reply as a channel
// of chunks. The channel is buffered and closed when the stream completes;
// failures are delivered as a final chunk with Err set. There is no
// cancellation beyond the context.
func (c *Client) GenerateStream(ctx context.Context, turns []Turn, opts GenerateOptions) (<-chan StreamChunk, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if c.model == "" {
		return nil, ErrModelNotFound
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.buildRequest(turns, opts)
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 64)

	go func() {
		defer close(chunks)

		resp, err := c.openStream(ctx, body)
		if err != nil {
			chunks <- StreamChunk{Err: err}
			return
		}
		defer resp.Body.Close()

		if err := c.consumeStream(ctx, resp.Body, chunks); err != nil {
			chunks <- StreamChunk{Err: err}
		}
	}()

	return chunks, nil
}

// buildRequest marshals the request body for streamGenerateContent.
func (c *Client) buildRequest(turns []Turn, opts GenerateOptions) ([]byte, error) {
	req := generateRequest{Contents: turns}
	if opts.ThinkingEnabled && opts.ThinkingBudget > 0 {
		req.GenerationConfig = &generationConfig{
			ThinkingConfig: &thinkingConfig{ThinkingBudget: opts.ThinkingBudget},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return body, nil
}

// openStream opens the SSE connection, retrying transient failures.
// Only connection setup retries; a stream that breaks mid-flight surfaces
// a StreamError with the partial content instead.
func (c *Client) openStream(ctx context.Context, body []byte) (*http.Response, error) {
	url := c.endpoint(c.model, "streamGenerateContent") + "?alt=sse"

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(req)
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		c.logRequest(req)
		start := time.Now()
		// PERFORMANCE: shared streaming client, timeout via context only.
		resp, err := sharedStreamingClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, lastErr
			}
			continue
		}
		c.logResponse(resp, time.Since(start))

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		mapped := c.handleErrorResponse(resp.StatusCode, respBody)
		if !c.isRetryable(mapped) {
			return nil, mapped
		}
		lastErr = mapped
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// consumeStream reads SSE events and feeds them to the chunk channel.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, chunks chan<- StreamChunk) error {
	reader := newSSEReader(body)
	var partial strings.Builder

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.readEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return &StreamError{Partial: partial.String(), Err: err}
		}

		var wire streamResponse
		if err := json.Unmarshal(data, &wire); err != nil {
			// Skip malformed events rather than abort the whole reply.
			continue
		}

		chunk, err := wire.toChunk()
		if err != nil {
			return err
		}

		partial.WriteString(chunk.Text)

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// =============================================================================
// ACCUMULATED GENERATION
// =============================================================================

// Generate sends the conversation and returns the complete reply. Used by
// the line-mode CLI where streaming display is not needed.
func (c *Client) Generate(ctx context.Context, turns []Turn, opts GenerateOptions) (string, *Usage, error) {
	chunks, err := c.GenerateStream(ctx, turns, opts)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var usage *Usage
	for chunk := range chunks {
		if chunk.Err != nil {
			var streamErr *StreamError
			if errors.As(chunk.Err, &streamErr) && streamErr.Partial != "" {
				return streamErr.Partial, usage, chunk.Err
			}
			return text.String(), usage, chunk.Err
		}
		text.WriteString(chunk.Text)
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	return text.String(), usage, nil
}
