package main

import (
	"fmt"
	"io"

	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/observers"
	"github.com/harunnryd/vocalis/pkg/voice"
)

func reportSynthesis(w io.Writer, out voice.SynthesisOutcome) {
	for _, a := range out.Attempts {
		line := fmt.Sprintf("  %-12s %s", a.Provider, a.Status)
		if a.Reason != "" {
			line += " (" + string(a.Reason) + ")"
		}
		fmt.Fprintln(w, line)
		if hint := errorsx.Hint(a.Reason); hint != "" && a.Status == voice.AttemptFailed {
			fmt.Fprintf(w, "  %-12s hint: %s\n", "", hint)
		}
	}
	switch out.Status {
	case voice.SynthesisFailed:
		fmt.Fprintf(w, "speak: failed, every provider was unavailable [run %s]\n", out.RunID)
	case voice.SynthesisSaved:
		fmt.Fprintf(w, "speak: saved %s via %s, playback skipped (%s) [run %s]\n",
			out.Artifact.Path, out.Provider, out.Playback.Reason, out.RunID)
	default:
		fmt.Fprintf(w, "speak: played %s via %s [run %s]\n", out.Artifact.Path, out.Provider, out.RunID)
	}
}

func reportCapture(w io.Writer, out voice.CaptureOutcome) {
	if out.OK() {
		fmt.Fprintf(w, "record: saved %s (%.1fs, %d bytes) [run %s]\n",
			out.Artifact.Path, out.Duration.Seconds(), out.Artifact.Size, out.RunID)
		return
	}
	fmt.Fprintf(w, "record: %s (%s, %s) [run %s]\n", out.Status, out.Reason, errorsx.CategoryOf(out.Err), out.RunID)
	if hint := errorsx.Hint(out.Reason); hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", hint)
	}
	if out.IntermediatePath != "" {
		fmt.Fprintf(w, "  lossless recording kept at %s\n", out.IntermediatePath)
	}
}

func reportTranscription(w io.Writer, out voice.TranscriptionOutcome) {
	if out.OK() {
		fmt.Fprintf(w, "transcript: %s\n", out.Text)
		return
	}
	fmt.Fprintf(w, "transcribe: %s (%s, %s) [run %s]\n", out.Status, out.Reason, errorsx.CategoryOf(out.Err), out.RunID)
}

func reportUsage(w io.Writer, summary observers.UsageSummary) {
	for _, p := range summary.Providers {
		if p.Attempts == 0 && p.Skipped == 0 {
			continue
		}
		fmt.Fprintf(w, "usage: %-12s attempts=%d ok=%d skipped=%d chars=%d\n",
			p.Provider, p.Attempts, p.Successes, p.Skipped, p.Characters)
	}
}
