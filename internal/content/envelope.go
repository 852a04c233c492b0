package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	"inkwell/internal/models"
)

// envelope is the paginated list wrapper used by the API.
type envelope struct {
	Results json.RawMessage `json:"results"`
	Next    *string         `json:"next"`
	Count   *int            `json:"count"`
}

// decodeList accepts either a bare JSON array or an object with a
// "results" array. A missing or null results field yields an empty slice.
func decodeList[T any](body []byte) ([]T, *envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, nil, fmt.Errorf("decode envelope: %w", err)
	}

	items := []T{}
	if len(env.Results) > 0 && string(env.Results) != "null" {
		if err := json.Unmarshal(env.Results, &items); err != nil {
			return nil, nil, fmt.Errorf("decode results: %w", err)
		}
	}
	return items, &env, nil
}

// decodePage normalises a post listing into a PostPage. HasMore follows the
// envelope's "next" link; Total is "count", falling back to the item count.
func decodePage(body []byte) (models.PostPage, error) {
	items, env, err := decodeList[models.Post](body)
	if err != nil {
		return models.PostPage{}, err
	}

	page := models.PostPage{Items: items, Total: len(items)}
	if env != nil {
		page.HasMore = env.Next != nil && *env.Next != ""
		if env.Count != nil && *env.Count > 0 {
			page.Total = *env.Count
		}
	}
	return page, nil
}
