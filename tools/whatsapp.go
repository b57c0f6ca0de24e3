package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGraphURL = "https://graph.facebook.com"

// WhatsAppAPIError carrega a resposta de erro da Cloud API.
type WhatsAppAPIError struct {
	StatusCode int
	Body       string
}

func (e WhatsAppAPIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.StatusCode, e.Body)
}

// WhatsAppClient envia mensagens pelo número oficial da secretaria (Cloud API).
type WhatsAppClient struct {
	AccessToken   string
	ApiVersion    string // e.g. v24.0
	PhoneNumberID string
	BaseURL       string // vazio = graph.facebook.com
	HTTPClient    *http.Client
}

func (c WhatsAppClient) post(ctx context.Context, path string, body any) error {
	apiVersion := strings.TrimSpace(c.ApiVersion)
	if apiVersion == "" {
		apiVersion = "v24.0"
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = defaultGraphURL
	}
	url := fmt.Sprintf("%s/%s/%s/%s", base, apiVersion, strings.TrimSpace(c.PhoneNumberID), path)

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.AccessToken))
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return WhatsAppAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// SendText envia uma mensagem de texto simples para um número já normalizado.
func (c WhatsAppClient) SendText(ctx context.Context, to string, text string) error {
	if strings.TrimSpace(c.AccessToken) == "" || strings.TrimSpace(c.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp não configurado")
	}
	return c.post(ctx, "messages", map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"body": text,
		},
	})
}
