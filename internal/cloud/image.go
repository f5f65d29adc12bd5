// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// IMAGE GENERATION
// =============================================================================

// GeneratedImage is the decoded result of an image generation request.
type GeneratedImage struct {
	MIMEType string
	Data     []byte
	Aspect   string
	Usage    *Usage
}

// imagen predict wire format.
type predictRequest struct {
	Instances []struct {
		Prompt string `json:"prompt"`
	} `json:"instances"`
	Parameters struct {
		SampleCount int    `json:"sampleCount"`
		AspectRatio string `json:"aspectRatio,omitempty"`
	} `json:"parameters"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

// generateContent wire format for image-capable chat models.
type imagePartsResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *Usage `json:"usageMetadata"`
}

// GenerateImage produces an image from a prompt. Image models come in two
// flavors: dedicated imagen models use the predict operation, while
// image-capable chat models go through generateContent with an image
// response modality. The caller validates model and aspect against the
// registry; this method passes them through.
func (c *Client) GenerateImage(ctx context.Context, imageModel, prompt, aspect string) (*GeneratedImage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	prompt = norm.NFC.String(prompt)

	if strings.HasPrefix(imageModel, "imagen-") {
		return c.predictImage(ctx, imageModel, prompt, aspect)
	}
	return c.chatImage(ctx, imageModel, prompt, aspect)
}

// predictImage calls the predict operation on a dedicated image model.
func (c *Client) predictImage(ctx context.Context, imageModel, prompt, aspect string) (*GeneratedImage, error) {
	var req predictRequest
	req.Instances = append(req.Instances, struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt})
	req.Parameters.SampleCount = 1
	req.Parameters.AspectRatio = aspect

	body, err := c.doImageRequest(ctx, c.endpoint(imageModel, "predict"), req)
	if err != nil {
		return nil, err
	}

	var wire predictResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parsing image response: %w", err)
	}
	if len(wire.Predictions) == 0 {
		return nil, fmt.Errorf("%w: image response contained no predictions", ErrContentBlocked)
	}

	data, err := base64.StdEncoding.DecodeString(wire.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}

	mime := wire.Predictions[0].MIMEType
	if mime == "" {
		mime = "image/png"
	}

	return &GeneratedImage{
		MIMEType: mime,
		Data:     data,
		Aspect:   aspect,
	}, nil
}

// chatImage calls generateContent on an image-capable chat model.
func (c *Client) chatImage(ctx context.Context, imageModel, prompt, aspect string) (*GeneratedImage, error) {
	req := map[string]any{
		"contents": []Turn{NewUserTurn(prompt)},
		"generationConfig": map[string]any{
			"responseModalities": []string{"IMAGE"},
			"imageConfig": map[string]string{
				"aspectRatio": aspect,
			},
		},
	}

	body, err := c.doImageRequest(ctx, c.endpoint(imageModel, "generateContent"), req)
	if err != nil {
		return nil, err
	}

	var wire imagePartsResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parsing image response: %w", err)
	}

	for _, cand := range wire.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding image payload: %w", err)
			}
			return &GeneratedImage{
				MIMEType: part.InlineData.MIMEType,
				Data:     data,
				Aspect:   aspect,
				Usage:    wire.UsageMetadata,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: image response contained no image parts", ErrContentBlocked)
}

// doImageRequest posts a JSON body and returns the raw response, with the
// same retry policy as text generation.
func (c *Client) doImageRequest(ctx context.Context, url string, reqBody any) ([]byte, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		c.setHeaders(req)

		c.logRequest(req)
		start := time.Now()
		resp, err := sharedHTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		c.logResponse(resp, time.Since(start))

		body, err := readResponse(resp)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		mapped := c.handleErrorResponse(resp.StatusCode, body)
		if !c.isRetryable(mapped) {
			return nil, mapped
		}
		lastErr = mapped
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
