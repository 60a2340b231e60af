package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestOutputFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "clash.yaml"},
		{"  ", "clash.yaml"},
		{"my_nodes", "my_nodes.yaml"},
		{"my.yml", "my.yml"},
		{"trailing.", "trailing..yaml"},
		{".hidden", ".hidden.yaml"},
	}
	for _, tt := range tests {
		got, err := outputFileName(tt.in)
		if err != nil {
			t.Fatalf("outputFileName(%q) unexpected err: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("outputFileName(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputFileName_Rejects(t *testing.T) {
	for _, in := range []string{"a/b", `a\b`, "a\nb", strings.Repeat("x", 201)} {
		_, err := outputFileName(in)
		var ae *APIError
		if !errors.As(err, &ae) {
			t.Fatalf("outputFileName(%q): expected *APIError, got %T: %v", in, err, err)
		}
		if ae.Status != http.StatusBadRequest {
			t.Fatalf("status=%d, want=%d", ae.Status, http.StatusBadRequest)
		}
	}
}

func TestContentDispositionAttachment(t *testing.T) {
	got := contentDispositionAttachment(`节点 "a".yaml`)
	want := `attachment; filename="节点 \"a\".yaml"; filename*=UTF-8''%E8%8A%82%E7%82%B9%20%22a%22.yaml`
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}
