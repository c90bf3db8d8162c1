package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/teomiscia/openingbell/models"
)

func TestCalendarStatus(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"region_id":"japan","status":"OPEN"}`))
	}))
	defer server.Close()

	calendarService := NewCalendarService(server.URL, "sekrit", 5*time.Second)
	status, err := calendarService.Status(context.Background(), "japan")
	require.NoError(t, err)
	assert.Equal(t, models.RegionStatusOpen, status)
	assert.Equal(t, "/regions/japan/status", gotPath)
	assert.Equal(t, "sekrit", gotKey)
}

func TestCalendarStatusClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"region_id":"japan","status":"CLOSED"}`))
	}))
	defer server.Close()

	calendarService := NewCalendarService(server.URL, "", 5*time.Second)
	status, err := calendarService.Status(context.Background(), "japan")
	require.NoError(t, err)
	assert.Equal(t, models.RegionStatusClosed, status)
}

func TestCalendarServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	calendarService := NewCalendarService(server.URL, "", 5*time.Second)
	_, err := calendarService.Status(context.Background(), "japan")
	assert.ErrorContains(t, err, "status 500")
}

func TestCalendarUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"region_id":"japan","status":"HALF_DAY"}`))
	}))
	defer server.Close()

	calendarService := NewCalendarService(server.URL, "", 5*time.Second)
	_, err := calendarService.Status(context.Background(), "japan")
	assert.ErrorContains(t, err, "unknown status")
}
