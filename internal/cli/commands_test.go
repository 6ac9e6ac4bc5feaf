package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/types"
)

func TestRunConfigDefaults(t *testing.T) {
	cfg := config.Default()
	rf := &runFlags{
		topic:       "test topic",
		duration:    45,
		orientation: "portrait",
		visualMode:  "zoompan",
	}
	run := rf.runConfig(cfg)

	if run.Topic != "test topic" {
		t.Fatalf("topic = %q", run.Topic)
	}
	if run.VoiceActor != cfg.DefaultVoice {
		t.Fatalf("voice = %q, want default %q", run.VoiceActor, cfg.DefaultVoice)
	}
	if run.VisualMode != "zoompan" {
		t.Fatalf("visual mode = %q", run.VisualMode)
	}
	if run.IdealImageDuration <= 0 || run.MinImageDuration <= 0 {
		t.Fatalf("image durations unset: %+v", run)
	}
}

func TestVideoProviderForcesVideoGenMode(t *testing.T) {
	rf := &runFlags{topic: "x", videoProvider: "runway", visualMode: "zoompan"}
	run := rf.runConfig(config.Default())
	if run.VisualMode != "video_gen" {
		t.Fatalf("visual mode = %q, want video_gen", run.VisualMode)
	}
}

func TestResearchRequiresV2(t *testing.T) {
	rf := &runFlags{topic: "x", enableResearch: true}
	if run := rf.runConfig(config.Default()); run.EnableResearch {
		t.Fatal("research enabled without v2")
	}
	rf.v2 = true
	if run := rf.runConfig(config.Default()); !run.EnableResearch {
		t.Fatal("research not enabled with v2")
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeTestConfig(t, cfgPath, dir)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"history", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	if got := out.String(); got != "no runs recorded\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestReportPartialSurfacesState(t *testing.T) {
	cmd := &cobra.Command{}
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	state := &types.ShortFormState{Script: "half a script survived"}
	err := fmt.Errorf("short: %w", &pipeline.StepError{
		Step:  "generate_audio",
		State: state,
		Err:   errors.New("tts down"),
	})

	if got := reportPartial(cmd, err); got != err {
		t.Fatalf("reportPartial rewrote the error: %v", got)
	}
	out := errOut.String()
	if !strings.Contains(out, "generate_audio") {
		t.Fatalf("report missing failed step:\n%s", out)
	}
	if !strings.Contains(out, "half a script survived") {
		t.Fatalf("report missing partial state:\n%s", out)
	}
}

func TestReportPartialLeavesPlainErrorsAlone(t *testing.T) {
	cmd := &cobra.Command{}
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	err := errors.New("config missing")
	if got := reportPartial(cmd, err); got != err {
		t.Fatalf("got %v, want the original error", got)
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected output %q", errOut.String())
	}
}

func writeTestConfig(t *testing.T, path, dir string) {
	t.Helper()
	body := "output_dir: " + dir + "\nhistory_path: " + filepath.Join(dir, "history.jsonl") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
