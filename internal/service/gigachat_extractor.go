package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"ledgerlens/internal/models"
	"ledgerlens/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GigaChatExtractor is the language-model extraction adapter. It turns
// annotated statement text or an uploaded image into extraction candidates.
type GigaChatExtractor struct {
	client      *gigago.Client
	model       *gigago.GenerativeModel
	config      *config.GigaChatConfig
	logger      *zap.Logger
	httpClient  *http.Client
	baseURL     string
	accessToken string // cached access token for file uploads
}

func buildSystemInstruction() string {
	return `You are a financial data extraction engine. You receive text taken from bank and credit card statements (or images of them) and return the individual transactions as structured JSON.

RULES:
- Return ONLY a valid JSON array, never prose, markdown or comments.
- Each element: {"date": "YYYY-MM-DD", "description": string, "amount": signed number, "category_slug"?: string, "total_amount"?: number, "installment_current"?: integer, "installment_total"?: integer}
- Amount sign carries the meaning: positive for income, negative for expenses. Lines may be annotated with [sign=income], [sign=expense] or [sign=unknown] hints produced by a deterministic preprocessor; trust those hints over layout.
- Lines annotated [sign=unknown amounts=A|B] come from two-column statements where column order is unreliable; decide from the description which value is the movement and which direction it goes.
- Use category_slug only when confident, choosing short lowercase slugs such as groceries, restaurants, transport, fuel, utilities, rent, shopping, entertainment, healthcare, education, insurance, subscriptions, fees, transfer, salary, interest, refund, other.
- Installment purchases ("payment 2 of 6") get installment_current, installment_total and, when the full price is printed, total_amount.
- Never invent transactions. If the text contains none, return [].`
}

// NewGigaChatExtractor creates the adapter. A missing API key is not an
// error: the adapter reports unavailable and the pipeline degrades to the
// local fallback.
func NewGigaChatExtractor(cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatExtractor, error) {
	e := &GigaChatExtractor{
		config:  cfg,
		logger:  logger,
		baseURL: "https://gigachat.devices.sberbank.ru/api/v1",
	}

	if cfg.APIKey == "" {
		logger.Warn("GigaChat API key is not configured, extraction adapter is unavailable")
		return e, nil
	}

	ctx := context.Background()
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = buildSystemInstruction()
	model.Temperature = 0.1

	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	accessToken, err := getAccessToken(ctx, cfg, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	e.client = client
	e.model = model
	e.httpClient = httpClient
	e.accessToken = accessToken
	return e, nil
}

// Available reports whether the provider can be called at all.
func (e *GigaChatExtractor) Available() bool {
	return e.client != nil
}

// getAccessToken obtains an access token from the GigaChat OAuth endpoint,
// needed for file uploads and direct API calls. The API key is expected to be
// Base64-encoded already, per the GigaChat API documentation.
func getAccessToken(ctx context.Context, cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	oauthURL := "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, "POST", oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}

	rqUID := uuid.New().String()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("rq_uid", rqUID),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	return oauthResp.AccessToken, nil
}

// ExtractFromText sends annotated statement text to the model and parses the
// candidate array out of its reply.
func (e *GigaChatExtractor) ExtractFromText(ctx context.Context, text, tenantContext string) ([]models.ExtractionCandidate, error) {
	if !e.Available() {
		return nil, fmt.Errorf("extraction adapter is unavailable")
	}

	text = strings.TrimSpace(text)
	if len(text) < minUsableTextLen {
		e.logger.Warn("Extracted text is too short, skipping analysis", zap.Int("length", len(text)))
		return []models.ExtractionCandidate{}, nil
	}

	var contextBlock string
	if tenantContext != "" {
		contextBlock = fmt.Sprintf("\nContext about this user (previously seen categorizations, prefer them when they fit):\n%s\n", tenantContext)
	}

	prompt := fmt.Sprintf(`Extract every transaction from the following financial document text.
%s
Document text:
%s

Return ONLY the JSON array described in your instructions. If there are no transactions, return [].`, contextBlock, text)

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := e.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	return parseCandidateJSON(resp.Choices[0].Message.Content, e.logger)
}

// parseCandidateJSON locates the JSON array in a model reply, stripping
// markdown fences and surrounding prose when present.
func parseCandidateJSON(content string, logger *zap.Logger) ([]models.ExtractionCandidate, error) {
	content = strings.TrimSpace(content)

	jsonStart := strings.Index(content, "[")
	jsonEnd := strings.LastIndex(content, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		// Some models answer in prose when there is nothing to extract.
		contentLower := strings.ToLower(content)
		for _, phrase := range []string{"no transactions", "no financial", "does not contain", "empty document"} {
			if strings.Contains(contentLower, phrase) {
				logger.Info("LLM indicated no transactions found, returning empty array")
				return []models.ExtractionCandidate{}, nil
			}
		}
		return nil, fmt.Errorf("invalid response format: %s", content)
	}

	jsonStr := content[jsonStart : jsonEnd+1]

	var candidates []models.ExtractionCandidate
	if err := json.Unmarshal([]byte(jsonStr), &candidates); err != nil {
		jsonStr = strings.TrimSpace(jsonStr)
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(jsonStr, "```")
		jsonStr = strings.TrimSpace(jsonStr)

		if err := json.Unmarshal([]byte(jsonStr), &candidates); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w", err)
		}
	}

	return candidates, nil
}

// ExtractFromImage uploads the image and runs a vision extraction pass.
func (e *GigaChatExtractor) ExtractFromImage(ctx context.Context, imagePath, tenantContext string) ([]models.ExtractionCandidate, error) {
	if !e.Available() {
		return nil, fmt.Errorf("extraction adapter is unavailable")
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileID, err := e.uploadFile(ctx, file, filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	var contextBlock string
	if tenantContext != "" {
		contextBlock = fmt.Sprintf("\nContext about this user (previously seen categorizations, prefer them when they fit):\n%s\n", tenantContext)
	}

	prompt := fmt.Sprintf(`This is an image of a financial document (statement, receipt or banking app screenshot).
Extract every transaction visible in it.
%s
Return ONLY the JSON array described in your instructions. If the image contains no transactions or is unreadable, return [].`, contextBlock)

	content, err := e.visionCompletion(ctx, fileID, prompt)
	if err != nil {
		return nil, err
	}

	return parseCandidateJSON(content, e.logger)
}

// uploadFile uploads a file to the GigaChat Files API and returns its id.
func (e *GigaChatExtractor) uploadFile(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// "general" purpose allows using the file in generation requests
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		switch ext {
		case ".pdf":
			mimeType = "application/pdf"
		case ".jpg", ".jpeg":
			mimeType = "image/jpeg"
		case ".png":
			mimeType = "image/png"
		case ".webp":
			mimeType = "image/webp"
		default:
			mimeType = "application/octet-stream"
		}
	}

	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, fileReader); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.accessToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", fmt.Errorf("file exceeds maximum size limit")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	e.logger.Debug("File uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

// visionCompletion calls the chat completions endpoint with a file
// attachment, per the GigaChat Vision API: attachments format [["file_id"]].
func (e *GigaChatExtractor) visionCompletion(ctx context.Context, fileID, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": "GigaChat",
		"messages": []map[string]any{
			{
				"role":        "user",
				"content":     prompt,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature": 0.1,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.accessToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("vision API failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(visionResp.Choices) == 0 {
		return "", fmt.Errorf("no response from Vision API")
	}

	return strings.TrimSpace(visionResp.Choices[0].Message.Content), nil
}

func (e *GigaChatExtractor) Close() error {
	if e.client != nil {
		e.client.Close()
	}
	return nil
}
