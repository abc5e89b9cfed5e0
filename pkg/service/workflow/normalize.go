package workflow

import (
	"bytes"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// EmptyResponseText is the reply used when the workflow engine answers with an empty body
const EmptyResponseText = "I received your message but got an empty response from the processing system. Please try again."

var (
	// array replies prefer "output", which is what n8n agent nodes emit
	arrayTextKeys  = []string{"output", "content", "response", "message", "text"}
	objectTextKeys = []string{"content", "response", "message", "text"}
)

// Normalize turns a raw webhook reply into an AnalysisResult. It has no side
// effects.
func Normalize(body []byte) (*model.AnalysisResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &model.AnalysisResult{
			Text:    EmptyResponseText,
			Actions: []model.ActionButton{},
		}, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return &model.AnalysisResult{
			Text:    string(body),
			Actions: []model.ActionButton{},
		}, nil
	}

	var (
		element map[string]any
		keys    []string
	)
	switch v := decoded.(type) {
	case []any:
		if len(v) > 0 {
			element, _ = v[0].(map[string]any)
		}
		keys = arrayTextKeys
	case map[string]any:
		element = v
		keys = objectTextKeys
	}

	if element == nil {
		return nil, goerr.Wrap(interfaces.ErrUpstreamResponse, "reply has no object to extract text from",
			goerr.V("body", truncate(string(body), 512)))
	}

	text := firstString(element, keys)
	if text == "" {
		return nil, goerr.Wrap(interfaces.ErrUpstreamResponse, "reply has no text field",
			goerr.V("body", truncate(string(body), 512)))
	}

	result := &model.AnalysisResult{
		Text:    text,
		Actions: decodeActions(element),
	}
	if analysis, ok := element["analysis"]; ok && analysis != nil {
		result.Structured = analysis
	} else {
		result.Structured = element
	}
	return result, nil
}

func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func decodeActions(obj map[string]any) []model.ActionButton {
	raw, ok := obj["action_buttons"]
	if !ok || raw == nil {
		raw = obj["actions"]
	}

	items, _ := raw.([]any)
	actions := make([]model.ActionButton, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		label, _ := m["label"].(string)
		if label == "" {
			label = id
		}
		variant, _ := m["variant"].(string)
		icon, _ := m["icon"].(string)

		actions = append(actions, model.ActionButton{
			ID:      id,
			Label:   label,
			Variant: types.ButtonVariant(variant).Normalize(),
			Icon:    icon,
		})
	}
	return actions
}
