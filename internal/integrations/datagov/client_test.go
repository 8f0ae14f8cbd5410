package datagov

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/action/package_search":
			require.Equal(t, "infant care", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"success":true,"result":{"results":[{"resources":[{"id":"res-123"}]}]}}`))
		case "/api/action/datastore_search":
			require.Equal(t, "res-123", r.URL.Query().Get("resource_id"))
			require.Equal(t, "tampines", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"success":true,"result":{"records":[
				{"centre_name":"Sunshine Infantcare","centre_address":"1 Tampines St 11","postal_code":"520111"},
				{"centre_name":"","centre_address":"no name, dropped"},
				{"centre_name":"Little Steps","street_name":"5 Tampines Ave 4"}
			]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	places, err := c.Lookup(context.Background(), "infant care", "tampines", 3)
	require.NoError(t, err)
	require.Len(t, places, 2)
	require.Equal(t, "Sunshine Infantcare", places[0].Name)
	require.Equal(t, "1 Tampines St 11", places[0].Address)
	require.Equal(t, "Little Steps", places[1].Name)
	require.Equal(t, "5 Tampines Ave 4", places[1].Address)
}

func TestFindResource_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"result":{"results":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FindResource(context.Background(), "nonexistent dataset")
	require.Error(t, err)
}

func TestSearchPlaces_UnsuccessfulEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.SearchPlaces(context.Background(), "res-123", "tampines", 3)
	require.Error(t, err)
}

func TestSearchPlaces_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.SearchPlaces(context.Background(), "res-123", "tampines", 3)
	require.Error(t, err)
}
