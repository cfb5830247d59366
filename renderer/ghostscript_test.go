package renderer

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestGhostscriptArgs(t *testing.T) {
	gs := NewGhostscript(WithBinary("/opt/gs/bin/gs"), WithArgs("-dTextAlphaBits=4"))
	if gs.Path() != "/opt/gs/bin/gs" || gs.Name() != "ghostscript" {
		t.Fatalf("unexpected renderer %q at %q", gs.Name(), gs.Path())
	}
	args := gs.Args(Options{Resolution: 72, ExtraArgs: []string{"-dGraphicsAlphaBits=4"}})
	got := strings.Join(args, " ")
	want := "-q -dSAFER -dBATCH -dNOPAUSE -sDEVICE=ppmraw -sstdout=%stderr -sOutputFile=- -r72x72 -dTextAlphaBits=4 -dGraphicsAlphaBits=4 -"
	if got != want {
		t.Fatalf("args =\n%s\nwant\n%s", got, want)
	}
}

func TestGhostscriptDefaultResolution(t *testing.T) {
	for _, res := range []int{0, -5} {
		args := NewGhostscript().Args(Options{Resolution: res})
		if !contains(args, "-r300x300") {
			t.Fatalf("resolution %d: expected default -r300x300 in %q", res, args)
		}
	}
	if NewGhostscript(WithBinary("")).Path() != DefaultGhostscriptBinary() {
		t.Fatalf("empty WithBinary should keep the default")
	}
}

func TestGhostscriptRendersPPM(t *testing.T) {
	gs := NewGhostscript()
	if !gs.Available() {
		t.Skip("ghostscript not installed in PATH")
	}
	doc := []byte("%!PS\n<< /PageSize [72 36] >> setpagedevice\n1 0 0 setrgbcolor 0 0 72 36 rectfill showpage\n")
	s, err := gs.Start(context.Background(), doc, Options{Resolution: 72})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()
	out, err := io.ReadAll(s.Output())
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(out), "P6\n") {
		t.Fatalf("unexpected output prefix %q", out[:min(len(out), 16)])
	}
	if code, err := s.Wait(); err != nil || code != 0 {
		t.Fatalf("Wait() = %d, %v (stderr %q)", code, err, s.Stderr())
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
