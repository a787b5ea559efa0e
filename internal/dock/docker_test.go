package dock

import (
	"archive/tar"
	"io"
	"strings"
	"testing"

	"github.com/drydock-platform/drydock/internal/entity"
)

func TestTarManifestPacksFiles(t *testing.T) {
	rc, err := tarManifest(BuildContainerSpec{
		BuildID: "build-1",
		Manifest: []entity.ManifestFile{
			{Path: "Dockerfile", Body: "FROM scratch\n"},
			{Path: "conf/app.env", Body: "PORT=80\n"},
		},
	})
	if err != nil {
		t.Fatalf("tarManifest() error = %v", err)
	}
	defer rc.Close()

	got := map[string]string{}
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read %s: %v", hdr.Name, err)
		}
		got[strings.TrimPrefix(hdr.Name, "./")] = string(body)
	}
	if got["Dockerfile"] != "FROM scratch\n" {
		t.Errorf("Dockerfile body = %q", got["Dockerfile"])
	}
	if got["conf/app.env"] != "PORT=80\n" {
		t.Errorf("conf/app.env body = %q", got["conf/app.env"])
	}
}

func TestTarManifestRejectsEscapingPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../escape.txt"},
		{"nested traversal", "a/../../escape.txt"},
		{"absolute path", "/etc/escape.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := tarManifest(BuildContainerSpec{
				BuildID:  "build-1",
				Manifest: []entity.ManifestFile{{Path: tt.path, Body: "x"}},
			})
			if err == nil {
				rc.Close()
				t.Fatalf("tarManifest(%q) succeeded; want error", tt.path)
			}
		})
	}
}
