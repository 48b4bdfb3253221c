package narration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Voicevox synthesises speech with a running VOICEVOX engine.
type Voicevox struct {
	baseURL string
	speaker int
	client  *http.Client
	retry   retryer
}

func NewVoicevox(baseURL string, speaker int) *Voicevox {
	return &Voicevox{
		baseURL: strings.TrimRight(baseURL, "/"),
		speaker: speaker,
		client:  &http.Client{Timeout: 60 * time.Second},
		retry:   retryer{maxRetries: 2, baseDelay: 300 * time.Millisecond},
	}
}

// Speak returns a WAV rendition of text.
func (v *Voicevox) Speak(ctx context.Context, text string) ([]byte, error) {
	if v.baseURL == "" {
		return nil, ErrNotConfigured
	}
	text = cleanText(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	var query []byte
	err := v.retry.do(ctx, func() error {
		q, err := v.post(ctx, "/audio_query", url.Values{
			"text":    {text},
			"speaker": {strconv.Itoa(v.speaker)},
		}, nil)
		query = q
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("audio_query: %w", err)
	}

	var wav []byte
	err = v.retry.do(ctx, func() error {
		w, err := v.post(ctx, "/synthesis", url.Values{"speaker": {strconv.Itoa(v.speaker)}}, query)
		wav = w
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	return wav, nil
}

func (v *Voicevox) post(ctx context.Context, path string, params url.Values, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path+"?"+params.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voicevox request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError("voicevox", resp.StatusCode, data)
	}
	return data, nil
}
