package api

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		url        string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{"/", 50, 0, false},
		{"/?limit=10", 10, 0, false},
		{"/?limit=10&offset=20", 10, 20, false},
		{"/?limit=0", 0, 0, true},
		{"/?limit=abc", 0, 0, true},
		{"/?offset=-1", 0, 0, true},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		p, err := ParsePagination(r)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.url, err)
			continue
		}
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: got %d/%d, want %d/%d", tt.url, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}
