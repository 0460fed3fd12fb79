package feedback

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

	"github.com/omartood/Interview-Tools/internal/session"
	"github.com/omartood/Interview-Tools/internal/transcript"
)

// Report is the structured post-interview assessment.
type Report struct {
	Score        int      `json:"score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Generator produces a feedback report from a finished interview transcript.
// Any failure yields a degraded zero report instead of an error; the caller
// flow never breaks on feedback problems.
type Generator struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	// BaseURL overrides the API host in tests.
	BaseURL string
}

type generateRequest struct {
	Contents         []reqContent  `json:"contents"`
	GenerationConfig *reqGenConfig `json:"generationConfig,omitempty"`
}

type reqContent struct {
	Parts []reqPart `json:"parts"`
}

type reqPart struct {
	Text string `json:"text"`
}

type reqGenConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func NewGenerator(apiKey, model string) *Generator {
	return &Generator{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    "https://generativelanguage.googleapis.com",
	}
}

// Generate requests a report for the finished interview. On any failure it
// logs and returns a degraded zero-score report.
func (g *Generator) Generate(ctx context.Context, cfg session.InterviewConfig, items []transcript.Item) Report {
	report, err := g.generate(ctx, cfg, items)
	if err != nil {
		log.Printf("Feedback generation failed: %v", err)
		return Report{
			Score:   0,
			Summary: "Feedback could not be generated for this session.",
		}
	}
	return report
}

func (g *Generator) generate(ctx context.Context, cfg session.InterviewConfig, items []transcript.Item) (Report, error) {
	if g.APIKey == "" {
		return Report{}, fmt.Errorf("feedback api key missing")
	}
	if len(items) == 0 {
		return Report{}, fmt.Errorf("empty transcript")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.APIKey)

	reqBody, _ := json.Marshal(generateRequest{
		Contents:         []reqContent{{Parts: []reqPart{{Text: buildPrompt(cfg, items)}}}},
		GenerationConfig: &reqGenConfig{ResponseMimeType: "application/json"},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return Report{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return Report{}, fmt.Errorf("feedback error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Report{}, err
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Report{}, fmt.Errorf("feedback: empty candidates")
	}

	text := stripFences(gr.Candidates[0].Content.Parts[0].Text)
	var report Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return Report{}, fmt.Errorf("feedback: unparsable report: %w", err)
	}
	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score > 100 {
		report.Score = 100
	}
	return report, nil
}

// buildPrompt flattens the interview context and transcript into one request.
func buildPrompt(cfg session.InterviewConfig, items []transcript.Item) string {
	var b strings.Builder
	b.WriteString("You are an interview coach. Below is the transcript of a spoken job interview")
	if cfg.Role != "" {
		fmt.Fprintf(&b, " for a %s %s position", cfg.Seniority, cfg.Role)
	}
	b.WriteString(".\n")
	b.WriteString("Evaluate the candidate's answers and respond with a JSON object with exactly these fields: ")
	b.WriteString(`"score" (integer 0-100), "summary" (string), "strengths" (array of strings), "improvements" (array of strings).`)
	b.WriteString("\n\nTranscript:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(item.Role)), item.Text)
	}
	return b.String()
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
