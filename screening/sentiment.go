// Package screening wraps the external sentiment and spam-detection
// services behind a single "withhold for moderator review" decision made at
// content creation time.
package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rookery-social/rookery/util"
)

// SentimentClient calls a text classification endpoint which returns
// independent POSITIVE and NEGATIVE confidence scores. The scores do not
// necessarily sum to 1.
type SentimentClient struct {
	Client *http.Client
	Host   string
}

func NewSentimentClient(host string) *SentimentClient {
	return &SentimentClient{
		Client: util.RobustHTTPClient(),
		Host:   host,
	}
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type SentimentScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SentimentScores holds the two confidence scores of interest; labels other
// than POSITIVE/NEGATIVE are dropped.
type SentimentScores struct {
	Positive float64
	Negative float64
}

func (sc *SentimentClient) Classify(ctx context.Context, text string) (*SentimentScores, error) {
	b, err := json.Marshal(sentimentRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", sc.Host+"/classify", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() {
		sentimentAPIDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := sc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment request failed: %w", err)
	}
	defer res.Body.Close()

	sentimentAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("sentiment request failed statusCode=%d", res.StatusCode)
	}

	var results []SentimentScore
	if err := json.NewDecoder(res.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("parsing sentiment response: %w", err)
	}

	var scores SentimentScores
	for _, r := range results {
		switch r.Label {
		case "POSITIVE":
			scores.Positive = r.Score
		case "NEGATIVE":
			scores.Negative = r.Score
		}
	}
	return &scores, nil
}
