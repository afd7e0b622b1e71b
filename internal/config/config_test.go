package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	want := Credentials{ClientID: "abc", ClientSecret: "secret"}

	if err := Write(dir, want); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error reading a missing config.json")
	}
}

func TestWipeRemovesAllPersistedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{fileName, TokenFileName, DatabaseFileName} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := Wipe(dir); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{fileName, TokenFileName, DatabaseFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s still exists after Wipe", name)
		}
	}
}

func TestWipeIsIdempotentOnMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Wipe(dir); err != nil {
		t.Fatal(err)
	}
}
