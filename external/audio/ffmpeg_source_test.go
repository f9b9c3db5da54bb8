package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFFmpegSource_StartReadAndStop(t *testing.T) {
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'pcm-bytes'\nsleep 5\n")
	source := NewFFmpegSource(FFmpegConfig{Command: script})

	session, err := source.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 16)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "pcm-bytes") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}

func TestFFmpegSource_EarlyExit(t *testing.T) {
	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	source := NewFFmpegSource(FFmpegConfig{Command: script})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := source.Start(ctx)
	if err == nil {
		t.Fatal("expected early exit error")
	}
	if !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFFmpegSource_Defaults(t *testing.T) {
	source := NewFFmpegSource(FFmpegConfig{})
	if f := source.Format(); f.SampleRate != 16000 || f.Channels != 1 {
		t.Fatalf("unexpected format: %+v", f)
	}
	args := strings.Join(source.args(), " ")
	if !strings.Contains(args, "-f pulse -i default -ac 1 -ar 16000 -f s16le -") {
		t.Fatalf("unexpected args: %s", args)
	}
}

func TestIgnoreExitError(t *testing.T) {
	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatal("expected command to fail")
	}
	if got := ignoreExitError(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
