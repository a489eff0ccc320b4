package httpclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/httpclient"
)

func TestFetchCapabilityStatement_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fhir/metadata", r.URL.Path)
		assert.Contains(t, r.Header.Get("Accept"), "application/fhir+json")
		w.Header().Set("Content-Type", "application/fhir+json")
		_, _ = w.Write([]byte(`{"resourceType":"CapabilityStatement"}`))
	}))
	defer srv.Close()

	body, err := httpclient.NewClient(time.Second).FetchCapabilityStatement(context.Background(), srv.URL+"/fhir/metadata")
	require.NoError(t, err)
	assert.JSONEq(t, `{"resourceType":"CapabilityStatement"}`, string(body))
}

func TestFetchCapabilityStatement_Kinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   httpclient.FetchErrorKind
	}{
		{"not found", http.StatusNotFound, httpclient.KindNotFound},
		{"gone", http.StatusGone, httpclient.KindNotFound},
		{"unavailable", http.StatusServiceUnavailable, httpclient.KindUnreachable},
		{"forbidden", http.StatusForbidden, httpclient.KindOther},
		{"server error", http.StatusInternalServerError, httpclient.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := httpclient.NewClient(time.Second).FetchCapabilityStatement(context.Background(), srv.URL)
			var fetchErr *httpclient.UpstreamFetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.kind, fetchErr.Kind)
			assert.Equal(t, tt.status, fetchErr.Status)
		})
	}
}

func TestFetchCapabilityStatement_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := httpclient.NewClient(time.Second).FetchCapabilityStatement(context.Background(), addr+"/metadata")
	var fetchErr *httpclient.UpstreamFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, httpclient.KindUnreachable, fetchErr.Kind)
}

func TestFetchCapabilityStatement_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := httpclient.NewClient(50*time.Millisecond).FetchCapabilityStatement(context.Background(), srv.URL)
	var fetchErr *httpclient.UpstreamFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, httpclient.KindUnreachable, fetchErr.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchCapabilityStatement_BadURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "ftp://example.org/metadata", "mailto:ops@example.org", "/relative"} {
		_, err := httpclient.NewClient(0).FetchCapabilityStatement(context.Background(), u)
		var fetchErr *httpclient.UpstreamFetchError
		require.True(t, errors.As(err, &fetchErr), u)
		assert.Equal(t, httpclient.KindInvalidURL, fetchErr.Kind, u)
	}
}
