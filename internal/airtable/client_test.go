package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchAllRules_FollowsPagination(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/base123/inks", r.URL.Path)

		switch r.URL.Query().Get("offset") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"id": "rec1", "fields": map[string]any{
						"Name":            "Pilot Iroshizuku",
						"Brand+ink regex": `Iroshi[a-z]*`,
						"Imgur Address":   "https://i.example/iro.jpg",
					}},
				},
				"offset": "page2",
			})
		case "page2":
			json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"id": "rec2", "fields": map[string]any{
						"Name":            "Noodler's Black",
						"Brand+ink regex": `Noodler's Black`,
						"Imgur Address":   "https://i.example/black.jpg",
					}},
				},
			})
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	}))
	defer srv.Close()

	client := New(Config{
		APIKey:  "key-abc",
		BaseID:  "base123",
		Table:   "inks",
		BaseURL: srv.URL,
	}, zap.NewNop())

	records, err := client.FetchAllRules(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer key-abc", gotAuth)
	require.Len(t, records, 2)
	require.Equal(t, "Pilot Iroshizuku", records[0].Name)
	require.Equal(t, "Noodler's Black", records[1].Name)
}

func TestFetchAllRules_TargetResolution(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": "rec1", "fields": map[string]any{
					"Name":            "scanned",
					"Brand+ink regex": `scanned`,
					"Imgur Address":   "https://i.example/old.jpg",
					"Scanned Page": []map[string]any{
						{"url": "https://scan.example/new.jpg"},
					},
				}},
				{"id": "rec2", "fields": map[string]any{
					"Name":            "direct only",
					"Brand+ink regex": `direct`,
					"Imgur Address":   "https://i.example/direct.jpg",
				}},
			},
		})
	}))
	defer srv.Close()

	v4 := New(Config{BaseID: "b", Table: "t", BaseURL: srv.URL, APIVersion: 4}, nil)
	records, err := v4.FetchAllRules(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://scan.example/new.jpg", records[0].Target)
	require.Equal(t, "https://i.example/direct.jpg", records[1].Target)

	v3 := New(Config{BaseID: "b", Table: "t", BaseURL: srv.URL, APIVersion: 3}, nil)
	records, err = v3.FetchAllRules(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://i.example/old.jpg", records[0].Target)
}

func TestFetchAllRules_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"NOT_AUTHORIZED"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(Config{BaseID: "b", Table: "t", BaseURL: srv.URL}, nil)
	_, err := client.FetchAllRules(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "401")
}
