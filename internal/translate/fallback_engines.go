package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BingEngine posts to Microsoft Translator's v3 /translate endpoint
// (target zh-Hans) without a subscription key. One call per text.
type BingEngine struct {
	client *http.Client
}

func NewBingEngine(timeout time.Duration) *BingEngine {
	return &BingEngine{client: &http.Client{Timeout: timeout}}
}

func (e *BingEngine) Name() string { return "bing" }

func (e *BingEngine) Translate(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := e.translateOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

type bingTranslation struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (e *BingEngine) translateOne(ctx context.Context, text string) (string, error) {
	endpoint := "https://api.cognitive.microsofttranslator.com/translate?api-version=3.0&to=zh-Hans"
	body, err := json.Marshal([]map[string]string{{"Text": text}})
	if err != nil {
		return "", fmt.Errorf("marshaling bing request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, newJSONBody(body))
	if err != nil {
		return "", fmt.Errorf("building bing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling bing: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bing returned %d: %s", resp.StatusCode, string(raw))
	}

	var out []bingTranslation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding bing response: %w", err)
	}
	if len(out) == 0 || len(out[0].Translations) == 0 {
		return "", fmt.Errorf("bing returned no translations")
	}
	return out[0].Translations[0].Text, nil
}

// BaiduEngine calls Baidu's general translation API, the last engine in
// the default fallback chain for names Bing fails on.
type BaiduEngine struct {
	appID  string
	secret string
	client *http.Client
}

func NewBaiduEngine(appID, secret string, timeout time.Duration) *BaiduEngine {
	return &BaiduEngine{appID: appID, secret: secret, client: &http.Client{Timeout: timeout}}
}

func (e *BaiduEngine) Name() string { return "baidu" }

type baiduResponse struct {
	TransResult []struct {
		Dst string `json:"dst"`
	} `json:"trans_result"`
	ErrorCode string `json:"error_code"`
}

func (e *BaiduEngine) Translate(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := e.translateOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

func (e *BaiduEngine) translateOne(ctx context.Context, text string) (string, error) {
	if e.appID == "" {
		return "", fmt.Errorf("baidu engine not configured")
	}
	salt, sign := baiduSign(e.appID, text, e.secret)

	form := url.Values{}
	form.Set("q", text)
	form.Set("from", "auto")
	form.Set("to", "zh")
	form.Set("appid", e.appID)
	form.Set("salt", salt)
	form.Set("sign", sign)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://fanyi-api.baidu.com/api/trans/vip/translate", newFormBody(form))
	if err != nil {
		return "", fmt.Errorf("building baidu request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling baidu: %w", err)
	}
	defer resp.Body.Close()

	var out baiduResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding baidu response: %w", err)
	}
	if out.ErrorCode != "" {
		return "", fmt.Errorf("baidu error %s", out.ErrorCode)
	}
	if len(out.TransResult) == 0 {
		return "", fmt.Errorf("baidu returned no translations")
	}
	return out.TransResult[0].Dst, nil
}
