package gorequest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elliothayes/gorequest/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionGetReusesPooledConnection(t *testing.T) {
	var remoteAddrs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteAddrs = append(remoteAddrs, r.RemoteAddr)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		resp, err := s.Get(ctx, srv.URL+"/", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		text, err := resp.Text()
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	}

	require.Len(t, remoteAddrs, 3)
	assert.Equal(t, remoteAddrs[0], remoteAddrs[1])
	assert.Equal(t, remoteAddrs[1], remoteAddrs[2])

	first, err := s.Get(ctx, srv.URL+"/", nil)
	require.NoError(t, err)
	assert.Greater(t, first.Timing.TotalTime, time.Duration(0))

	stats := s.PoolStats()
	require.Len(t, stats, 1)
	for _, st := range stats {
		assert.Equal(t, 1, st.Idle)
		assert.Equal(t, 0, st.InUse)
	}
}

func TestSessionPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"received":true}`))
	}))
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Post(context.Background(), srv.URL+"/submit", &RequestOptions{
		JSON: map[string]string{"name": "gopher"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	val, err := resp.JSON()
	require.NoError(t, err)
	m, ok := val.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, m["received"])
}

func TestSessionFormData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		r.ParseForm()
		assert.Equal(t, "1", r.Form.Get("a"))
		assert.Equal(t, "two", r.Form.Get("b"))
		w.WriteHeader(204)
	}))
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Post(context.Background(), srv.URL+"/form", &RequestOptions{
		Data: map[string]string{"b": "two", "a": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func TestSessionQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL+"/items", &RequestOptions{
		Params: map[string]string{"page": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSessionRedirectChain(t *testing.T) {
	var finalMux *http.ServeMux
	finalMux = http.NewServeMux()
	finalMux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL+"/start", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	text, _ := resp.Text()
	assert.Equal(t, "landed", text)
	assert.Len(t, resp.History, 2)
}

func TestSessionRedirect303RewritesToGET(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		http.Redirect(w, r, srv.URL+"/created", http.StatusSeeOther)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		w.Write([]byte("ok"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Post(context.Background(), srv.URL+"/create", &RequestOptions{Data: "payload"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSessionRedirect307DropsBody(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/create", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		http.Redirect(w, r, srv.URL+"/created", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.Write([]byte("ok"))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Post(context.Background(), srv.URL+"/create", &RequestOptions{Data: "payload"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSessionMaxRedirectsExceeded(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL+"/loop", &RequestOptions{MaxRedirects: 2})
	require.NoError(t, err)
	assert.True(t, resp.IsRedirect())
	assert.Len(t, resp.History, 2)
}

func TestSessionRaiseForStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL+"/missing", nil)
	require.NoError(t, err)

	err = resp.RaiseForStatus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSessionBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSession(WithAuth(auth.Basic{Username: "alice", Password: "secret"}))
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL+"/", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestSessionRequestTimeout(t *testing.T) {
	s := NewSession()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Get(ctx, "http://10.255.255.1:81/", nil)
	assert.Error(t, err)
}

func TestSessionClosedRejectsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSession()
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), srv.URL+"/", nil)
	assert.Error(t, err)
}

func TestGatherBulkGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	s := NewSession()
	defer s.Close()

	resps, err := s.BulkGet(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"}, nil)
	require.NoError(t, err)
	require.Len(t, resps, 2)

	a, _ := resps[0].Text()
	b, _ := resps[1].Text()
	assert.Equal(t, "/a", a)
	assert.Equal(t, "/b", b)
}
