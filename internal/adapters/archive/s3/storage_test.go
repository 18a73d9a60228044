package s3

import (
	"strings"
	"testing"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		folder  string
		file    string
		want    string
		wantErr bool
	}{
		{"plain join", "2025-03-14-a", "fina-request.xml", "2025-03-14-a/fina-request.xml", false},
		{"trims whitespace", " folder ", " file.xml ", "folder/file.xml", false},
		{"rejects traversal", "../secrets", "file.xml", "", true},
		{"rejects traversal in name", "folder", "../../etc/passwd", "", true},
		{"rejects leading slash", "/folder", "file.xml", "", true},
		{"rejects empty", "", "", "", true},
		{"rejects trailing slash", "folder", "file/", "", true},
		{"rejects backslash", "folder", "file\\name", "", true},
		{"rejects newline", "folder", "file\nname", "", true},
		{"rejects oversized key", strings.Repeat("a", 1100), "file.xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := objectKey(tt.folder, tt.file)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got key %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
