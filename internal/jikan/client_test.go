package jikan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frierenJSON = `{"data":{
	"mal_id":52991,
	"title":"Sousou no Frieren",
	"title_english":"Frieren: Beyond Journey's End",
	"title_japanese":"葬送のフリーレン",
	"title_synonyms":["Frieren at the Funeral"],
	"type":"TV",
	"episodes":28,
	"status":"Finished Airing",
	"synopsis":"The adventure is over.",
	"year":2023,
	"aired":{"from":"2023-09-29T00:00:00+00:00"},
	"images":{"jpg":{"image_url":"https://cdn/f.jpg","large_image_url":"https://cdn/f_l.jpg"}},
	"studios":[{"mal_id":11,"name":"Madhouse"}],
	"genres":[{"mal_id":2,"name":"Adventure"},{"mal_id":8,"name":"Drama"}]
}}`

func TestGetAnime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/anime/52991", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(frierenJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v4/", "", time.Second)
	a, err := c.GetAnime(context.Background(), 52991)
	require.NoError(t, err)

	assert.Equal(t, "Sousou no Frieren", a.Title)
	assert.Equal(t, "Frieren: Beyond Journey's End", a.TitleEnglish)
	require.NotNil(t, a.Episodes)
	assert.Equal(t, 28, *a.Episodes)
	assert.Equal(t, "https://cdn/f_l.jpg", a.ImageURL())
	assert.Equal(t, []string{"Madhouse"}, a.StudioNames())
	assert.Equal(t, []string{"Adventure", "Drama"}, a.GenreNames())
}

func TestGetAnime_NullCounters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":1,"title":"Airing","episodes":null,"year":null}}`))
	}))
	defer srv.Close()

	a, err := NewClient(srv.URL, "", 0).GetAnime(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, a.Episodes)
	assert.Nil(t, a.Year)
	assert.Empty(t, a.ImageURL())
}

func TestGetAnime_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"status":404,"type":"BadResponseException"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"status":429}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusTooManyRequests, se.HTTPStatus())
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   ``,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
			},
		},
		{
			name:   "malformed",
			status: http.StatusOK,
			body:   `{"data":`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformed)
			},
		},
		{
			name:   "missing data",
			status: http.StatusOK,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformed)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).GetAnime(context.Background(), 7)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestGetAnime_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second).GetAnime(context.Background(), 7)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
	assert.NotErrorIs(t, err, ErrNotFound)
}
