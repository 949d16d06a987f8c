package storage

import "testing"

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"reports/2026/01/abc.json": "application/json",
		"report_abc.html":          "text/html; charset=utf-8",
		"quality_report":           "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}
