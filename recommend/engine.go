package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"pricepilot/config"
	"pricepilot/models"
)

// maxHistoryEntries caps how much recent history goes into the prompt.
const maxHistoryEntries = 20

// fallbackConfidence is reported whenever the deterministic rule is used
// instead of the model.
const fallbackConfidence = 60

// Engine produces buy/wait recommendations. It delegates the judgment to an
// external language model and falls back to a deterministic rule when the
// model call fails or returns an unusable reply. Each call is a fresh
// judgment; nothing is cached.
type Engine struct {
	cfg    config.ModelConfig
	client *http.Client
}

// NewEngine creates a recommendation engine
func NewEngine(cfg config.ModelConfig) *Engine {
	return &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// chat-completions wire types
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Recommend builds a price summary for the product and asks the model for a
// structured buy/wait judgment.
func (e *Engine) Recommend(ctx context.Context, product *models.Product, history []models.PriceRecord, stats models.PriceStats) models.Recommendation {
	if len(history) > maxHistoryEntries {
		history = history[:maxHistoryEntries]
	}

	rec, err := e.askModel(ctx, buildPrompt(product, history, stats))
	if err != nil {
		log.Printf("⚠️ Model recommendation failed for %s, using fallback: %v", product.Name, err)
		return Fallback(stats)
	}
	return rec
}

// askModel posts the prompt and parses the strict-JSON reply.
func (e *Engine) askModel(ctx context.Context, prompt string) (models.Recommendation, error) {
	var rec models.Recommendation

	if e.cfg.APIKey == "" {
		return rec, fmt.Errorf("no model API key configured")
	}

	payload := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a price analyst. Reply with a single JSON object and nothing else."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return rec, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return rec, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return rec, fmt.Errorf("model call failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return rec, err
	}

	if resp.StatusCode != http.StatusOK {
		return rec, fmt.Errorf("model returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var reply chatResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return rec, fmt.Errorf("failed to parse model response: %v", err)
	}
	if reply.Error != nil {
		return rec, fmt.Errorf("model error: %s", reply.Error.Message)
	}
	if len(reply.Choices) == 0 {
		return rec, fmt.Errorf("model returned no choices")
	}

	return parseRecommendation(reply.Choices[0].Message.Content)
}

// parseRecommendation extracts the Recommendation JSON object from the model
// reply, tolerating markdown fences and surrounding prose.
func parseRecommendation(content string) (models.Recommendation, error) {
	var rec models.Recommendation

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return rec, fmt.Errorf("no JSON object in model reply")
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), &rec); err != nil {
		return rec, fmt.Errorf("model reply is not a valid recommendation: %v", err)
	}

	if rec.Reason == "" || rec.PricePoint == "" {
		return rec, fmt.Errorf("model reply missing required fields")
	}
	if rec.Confidence < 0 || rec.Confidence > 100 {
		return rec, fmt.Errorf("model confidence %d out of range", rec.Confidence)
	}

	return rec, nil
}

// buildPrompt summarizes the price statistics and recent history.
func buildPrompt(product *models.Product, history []models.PriceRecord, stats models.PriceStats) string {
	var b strings.Builder

	variation := 0.0
	if stats.Min > 0 {
		variation = (stats.Max - stats.Min) / stats.Min * 100
	}

	fmt.Fprintf(&b, "Product: %s", product.Name)
	if product.Brand != "" {
		fmt.Fprintf(&b, " (brand: %s)", product.Brand)
	}
	fmt.Fprintf(&b, "\nCurrent price: %.2f\nMinimum seen: %.2f\nMaximum seen: %.2f\nAverage: %.2f\nVariation: %.1f%%\n",
		stats.Current, stats.Min, stats.Max, stats.Avg, variation)

	b.WriteString("Recent observations (most recent first):\n")
	for _, rec := range history {
		fmt.Fprintf(&b, "- %s: %.2f %s on %s\n",
			rec.CapturedAt.Format(time.RFC3339), rec.Price, rec.Currency, rec.Platform)
	}

	b.WriteString(`Should the user buy now or wait? Answer with exactly this JSON shape:
{"should_buy": <bool>, "reason": "<one sentence>", "price_point": "<great deal|good price|above average>", "confidence": <0-100>}`)

	return b.String()
}

// Fallback is the deterministic rule used when the model is unavailable:
// buy when the current price is at or below the historical average.
func Fallback(stats models.PriceStats) models.Recommendation {
	pricePoint := "above average"
	switch {
	case stats.Min > 0 && stats.Current <= stats.Min*1.10:
		pricePoint = "great deal"
	case stats.Current <= stats.Avg:
		pricePoint = "good price"
	}

	shouldBuy := stats.Current <= stats.Avg
	reason := fmt.Sprintf("Current price %.2f is above the average of %.2f; waiting may pay off.", stats.Current, stats.Avg)
	if shouldBuy {
		reason = fmt.Sprintf("Current price %.2f is at or below the average of %.2f.", stats.Current, stats.Avg)
	}

	return models.Recommendation{
		ShouldBuy:  shouldBuy,
		Reason:     reason,
		PricePoint: pricePoint,
		Confidence: fallbackConfidence,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
