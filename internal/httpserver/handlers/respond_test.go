package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.KindValidation, "x"), http.StatusBadRequest},
		{apperr.New(apperr.KindImportFormat, "x"), http.StatusBadRequest},
		{apperr.New(apperr.KindNotFound, "x"), http.StatusNotFound},
		{apperr.New(apperr.KindNotInitialized, "x"), http.StatusServiceUnavailable},
		{apperr.New(apperr.KindNetwork, "x"), http.StatusBadGateway},
		{apperr.New(apperr.KindStorage, "x"), http.StatusInternalServerError},
		{fmt.Errorf("update bookmark 3: %w", apperr.New(apperr.KindValidation, "x")), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw      string
		endOfDay bool
		want     int64
		wantErr  bool
	}{
		{raw: "", want: 0},
		{raw: "1700000000000", want: 1700000000000},
		{raw: "2024-01-02", want: 1704153600000},
		{raw: "2024-01-02", endOfDay: true, want: 1704153600000 + 86400000 - 1},
		{raw: "tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.raw, tt.endOfDay), func(t *testing.T) {
			got, err := parseDate(tt.raw, tt.endOfDay)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDate() = %d, want %d", got, tt.want)
			}
		})
	}
}
