package main

import (
	"testing"
)

func TestWatchCommandRejectsAnUnregisteredSynth(t *testing.T) {
	watchSynthName = "Nonexistent9000"
	t.Cleanup(func() { watchSynthName = "" })

	err := watchCmd.RunE(watchCmd, []string{t.TempDir()})
	if err == nil {
		t.Fatalf("expected an error for a synth this build never registers")
	}
}

func TestEmptySynthRegistryNeverResolves(t *testing.T) {
	var registry emptySynthRegistry
	if _, ok := registry.Synth("anything"); ok {
		t.Fatalf("emptySynthRegistry resolved a synth, want it to always report false")
	}
}
