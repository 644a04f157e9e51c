package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchUserInfoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email":"ana@x.com","name":"Ana Lopez","picture":"https://img/a.png"}`))
	}))
	defer srv.Close()

	client := NewGoogleClient(time.Second, srv.URL)
	info, err := client.FetchUserInfo(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", info.Email)
	assert.Equal(t, "Ana Lopez", info.Name)
	assert.Equal(t, "https://img/a.png", info.Picture)
}

func TestFetchUserInfoStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrBridgeTokenInvalid},
		{name: "bad request", status: http.StatusBadRequest, wantErr: ErrBridgeTokenMalformed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := NewGoogleClient(time.Second, srv.URL)
			_, err := client.FetchUserInfo(context.Background(), "whatever")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFetchUserInfoUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewGoogleClient(time.Second, srv.URL)
	_, err := client.FetchUserInfo(context.Background(), "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBridgeTokenInvalid)
	assert.NotErrorIs(t, err, ErrBridgeTokenMalformed)
}

func TestFetchUserInfoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewGoogleClient(20*time.Millisecond, srv.URL)
	_, err := client.FetchUserInfo(context.Background(), "whatever")
	assert.ErrorIs(t, err, ErrBridgeTimeout)
}

func TestFetchUserInfoUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewGoogleClient(time.Second, srv.URL)
	_, err := client.FetchUserInfo(context.Background(), "whatever")
	assert.ErrorIs(t, err, ErrBridgeUnreachable)
}

func TestFetchUserInfoMissingEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"No Email"}`))
	}))
	defer srv.Close()

	client := NewGoogleClient(time.Second, srv.URL)
	_, err := client.FetchUserInfo(context.Background(), "whatever")
	assert.Error(t, err)
}
