package itests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, testBaseURL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAddFormDescriptors(t *testing.T) {
	resp, out := doJSON(t, http.MethodGet, "/api/book/add/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fields, ok := out["fields"].([]any)
	require.True(t, ok)
	byName := map[string]map[string]any{}
	for _, raw := range fields {
		d := raw.(map[string]any)
		byName[d["name"].(string)] = d
	}
	require.Contains(t, byName, "genre")
	assert.Len(t, byName["genre"]["choices"], 3)
	require.Contains(t, byName, "id")
	assert.Equal(t, true, byName["id"]["read_only"])
	require.Contains(t, byName, "publisher")
	assert.Equal(t, "publisher", byName["publisher"]["related_model"])
}

func TestAddChangeDeleteRoundTrip(t *testing.T) {
	resp, out := doJSON(t, http.MethodPost, "/api/book/add/", map[string]any{
		"data": map[string]any{
			"title":        "Round Trip",
			"genre":        "fiction",
			"pages":        10,
			"in_print":     true,
			"published_on": "2020-05-01",
			"publisher":    2,
			"authors":      []any{1, 3},
		},
		"create_inlines": map[string]any{
			"chapter": []map[string]any{
				{"title": "Intro", "number": 1},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", out)

	data := out["data"].(map[string]any)
	id := fmt.Sprintf("%v", data["id"])
	assert.Equal(t, "Round Trip", data["title"])
	assert.Len(t, data["authors"], 2)

	// PATCH: частичное обновление не требует остальных полей
	resp, out = doJSON(t, http.MethodPatch, "/api/book/"+id+"/change/", map[string]any{
		"data": map[string]any{"pages": 11},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", out)
	assert.Equal(t, float64(11), out["data"].(map[string]any)["pages"])
	assert.Equal(t, "Round Trip", out["data"].(map[string]any)["title"])

	// история объекта: addition + change
	resp, out = doJSON(t, http.MethodGet, "/api/book/"+id+"/history/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := out["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, float64(2), results[0].(map[string]any)["action_flag"]) // change сверху

	resp, out = doJSON(t, http.MethodPost, "/api/book/"+id+"/delete/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", out)

	resp, _ = doJSON(t, http.MethodGet, "/api/book/"+id+"/change/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddValidationAggregates(t *testing.T) {
	resp, out := doJSON(t, http.MethodPost, "/api/book/add/", map[string]any{
		"data": map[string]any{
			"genre": "horror", // не из choices
			"pages": 0,        // ниже min_value
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	// все три проблемы разом: отсутствующий title, плохой genre, плохой pages
	assert.Contains(t, out, "title")
	assert.Contains(t, out, "genre")
	assert.Contains(t, out, "pages")
}

func TestChangeRejectsReadonly(t *testing.T) {
	resp, out := doJSON(t, http.MethodPatch, "/api/book/1/change/", map[string]any{
		"data": map[string]any{"id": 99},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out, "id")
}

func TestInlineCrossParentRejected(t *testing.T) {
	// глава 3 принадлежит книге 2 — правка через книгу 1 должна падать целиком
	resp, out := doJSON(t, http.MethodPatch, "/api/book/1/change/", map[string]any{
		"data": map[string]any{},
		"update_inlines": map[string]any{
			"chapter": map[string]any{
				"3": map[string]any{"title": "Hijacked"},
			},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out, "inline_errors")

	// а сама глава не изменилась
	resp, got := doJSON(t, http.MethodGet, "/api/chapter/3/change/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Act One", got["repr"])
}

func TestInlineRowErrorsKeyedByOperation(t *testing.T) {
	// ошибки create-строк позиционны, ошибки update-строк ключуются по pk
	resp, out := doJSON(t, http.MethodPatch, "/api/book/1/change/", map[string]any{
		"data": map[string]any{},
		"create_inlines": map[string]any{
			"chapter": []map[string]any{
				{"title": "Epilogue", "number": 5},
				{"number": 0}, // нет title, number ниже минимума
			},
		},
		"update_inlines": map[string]any{
			"chapter": map[string]any{
				"1": map[string]any{"number": 0},
			},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	chapter := out["inline_errors"].(map[string]any)["chapter"].(map[string]any)

	creates := chapter["create"].([]any)
	require.Len(t, creates, 2)
	assert.Nil(t, creates[0])
	assert.Contains(t, creates[1], "title")

	updates := chapter["update"].(map[string]any)
	require.Contains(t, updates, "1")
	assert.Contains(t, updates["1"], "number")
}

func TestAutocomplete(t *testing.T) {
	resp, out := doJSON(t, http.MethodGet,
		"/api/publisher/autocomplete/?model_name=book&field_name=publisher&term=Azb", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := out["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Azbuka", results[0].(map[string]any)["text"])
}

func TestAutocompleteBadField(t *testing.T) {
	resp, _ := doJSON(t, http.MethodGet,
		"/api/publisher/autocomplete/?model_name=book&field_name=title", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPerformActionRequiresSelection(t *testing.T) {
	resp, out := doJSON(t, http.MethodPost, "/api/book/perform_action/", map[string]any{
		"action": "delete_selected",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["detail"], "no records selected")
}

func TestPerformActionUnknown(t *testing.T) {
	resp, _ := doJSON(t, http.MethodPost, "/api/book/perform_action/", map[string]any{
		"action":       "make_published",
		"selected_ids": []string{"1"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListEndpoint(t *testing.T) {
	resp, out := doJSON(t, http.MethodGet, "/api/author/list/?page_size=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), out["count"])
	assert.Len(t, out["results"], 2)

	// каждая запись несёт ссылку на свою change-форму
	for _, raw := range out["results"].([]any) {
		rec := raw.(map[string]any)
		id := rec["id"].(float64)
		assert.Equal(t, fmt.Sprintf("/api/author/%d/change/", int(id)), rec["detail_url"])
	}
}
