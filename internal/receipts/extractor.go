package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Extractor turns a receipt image into structured line items. The HTTP
// adapter below talks to a vision LLM; tests swap in a stub.
type Extractor interface {
	Extract(ctx context.Context, in ExtractInput) (ExtractedReceipt, error)
}

// ExtractInput carries the image to extract from.
type ExtractInput struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

const extractPrompt = `You read supplier receipts for a small retail store.
Given a photo of a receipt, return ONLY a JSON object (no extra text) with
this exact structure:
{
  "supplier_name": "<store or supplier name, empty string if unreadable>",
  "purchase_date": "<ISO 8601 date or null>",
  "items": [
    {"name": "<item name>", "quantity": <number>, "unit_price": <number>, "total_price": <number>, "unit": "<pcs/kg/l or empty>"}
  ],
  "total": <number>
}

Rules:
- Include every legible line item; skip subtotal/tax/change lines.
- quantity defaults to 1 when the receipt does not show one.
- unit_price is per single unit; derive it from total_price when needed.`

// GeminiConfig configures the extraction adapter.
type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiExtractor implements Extractor against the Gemini REST API using
// only net/http. JSON response mode keeps the output parseable without
// stripping markdown fences.
type GeminiExtractor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// NewGeminiExtractor builds the adapter. An empty API key yields
// ErrExtractorUnavailable at call time rather than a construction failure.
func NewGeminiExtractor(cfg GeminiConfig) *GeminiExtractor {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &GeminiExtractor{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// extractedPayload mirrors the JSON the model is instructed to return.
type extractedPayload struct {
	SupplierName string     `json:"supplier_name"`
	PurchaseDate *string    `json:"purchase_date"`
	Items        []struct {
		Name       string  `json:"name"`
		Quantity   float64 `json:"quantity"`
		UnitPrice  float64 `json:"unit_price"`
		TotalPrice float64 `json:"total_price"`
		Unit       string  `json:"unit"`
	} `json:"items"`
	Total float64 `json:"total"`
}

// Extract sends the image and parses the structured reply.
func (e *GeminiExtractor) Extract(ctx context.Context, in ExtractInput) (ExtractedReceipt, error) {
	if e.apiKey == "" {
		return ExtractedReceipt{}, ErrExtractorUnavailable
	}
	if in.ImageBase64 == "" {
		return ExtractedReceipt{}, fmt.Errorf("receipts: image payload required")
	}
	mime := in.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: extractPrompt}}},
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: "Extract the line items from this receipt."},
				{InlineData: &geminiBlobPart{MimeType: mime, Data: in.ImageBase64}},
			},
		}},
		GenerationConfig: genConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.1,
			MaxOutputTokens:  2048,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return ExtractedReceipt{}, err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ExtractedReceipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return ExtractedReceipt{}, fmt.Errorf("receipts: extractor call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ExtractedReceipt{}, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ExtractedReceipt{}, fmt.Errorf("receipts: decode extractor response: %w", err)
	}
	if parsed.Error != nil {
		return ExtractedReceipt{}, fmt.Errorf("receipts: extractor error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return ExtractedReceipt{}, fmt.Errorf("receipts: empty extractor response")
	}

	var payload extractedPayload
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &payload); err != nil {
		return ExtractedReceipt{}, fmt.Errorf("receipts: decode extracted items: %w", err)
	}

	return payload.toReceipt(), nil
}

func (p extractedPayload) toReceipt() ExtractedReceipt {
	receipt := ExtractedReceipt{
		SupplierName: p.SupplierName,
		Total:        decimal.NewFromFloat(p.Total),
	}
	if p.PurchaseDate != nil && *p.PurchaseDate != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if ts, err := time.Parse(layout, *p.PurchaseDate); err == nil {
				receipt.PurchaseDate = &ts
				break
			}
		}
	}
	for _, item := range p.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		unitPrice := decimal.NewFromFloat(item.UnitPrice)
		totalPrice := decimal.NewFromFloat(item.TotalPrice)
		if unitPrice.IsZero() && !totalPrice.IsZero() {
			unitPrice = totalPrice.Div(decimal.NewFromFloat(qty))
		}
		receipt.Items = append(receipt.Items, ExtractedItem{
			Name:       item.Name,
			Quantity:   qty,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
			Unit:       item.Unit,
		})
	}
	return receipt
}
