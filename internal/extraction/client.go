package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pillwise/go-reminder-backend/internal/config"
	"github.com/pillwise/go-reminder-backend/internal/domain"
)

// Sentinel errors callers branch on at the analyze boundary.
var (
	// ErrNotPrescription means the model judged the image not to be a
	// prescription or medication bag.
	ErrNotPrescription = errors.New("not a prescription image")
	// ErrUnreadable means the model responded but its output could not be
	// decoded into a prescription.
	ErrUnreadable = errors.New("unreadable extraction response")
)

// Extractor produces a structured prescription from an image. Implementations
// must honor the context for cancellation and timeouts.
type Extractor interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error)
}

// prompt instructs the model to emit the PrescriptionResult JSON shape. The
// exact extraction behavior is the collaborator's concern, not ours.
const prompt = `You are an expert at reading prescriptions and medication bags.
Extract the medications with simple senior-friendly names (drug_name_simple must be
unique within the medications array; add a qualifier when two drugs share a family),
daily alert times as "HH:MM" (breakfast 07:30 / lunch 12:30 / dinner 18:30 / bedtime 21:30),
dosage, timing, pill color as a CSS hex code and pill shape (round|capsule|tablet).
If the image is not a prescription, return {"error": "not a prescription image"}.
Respond with exactly one JSON object:
{
  "patient_name": "", "hospital": "", "prescription_date": "",
  "medications": [{
    "drug_name": "", "drug_name_simple": "", "pill_color": "#E8A0A0",
    "pill_shape": "tablet", "dosage": "", "frequency": 1, "timing": "",
    "duration_days": 14, "special_notes": "",
    "senior_friendly_instruction": "", "alert_times": ["07:30"]
  }],
  "general_warnings": [""], "ocr_confidence": "high"
}`

// Request/response DTOs for the generateContent endpoint.

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client calls the hosted model's generateContent endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient constructs a Client from configuration.
func NewClient(cfg config.ExtractionConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Analyze submits the image with the extraction prompt and parses the model's
// JSON reply through the boundary normalizer.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType string) (*domain.PrescriptionResult, error) {
	reqBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: prompt},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("extraction: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction: call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction: model returned status %d", resp.StatusCode)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("extraction: decode envelope: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("extraction: empty model response: %w", ErrUnreadable)
	}
	return ParsePrescription(out.Candidates[0].Content.Parts[0].Text)
}
