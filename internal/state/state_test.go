package state

import (
	"reflect"
	"testing"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

func TestChangedAndDeletedFiles(t *testing.T) {
	s := NewState()
	s.SetFileHash("a.c", "a1")
	s.SetFileHash("b.c", "b1")
	s.SetFileHash("c.c", "c1")

	current := map[string]string{
		"a.c": "a1",
		"b.c": "b2",
		"d.c": "d1",
	}
	if got, want := s.ChangedFiles(current), []string{"b.c", "d.c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected changed %v, got %v", want, got)
	}
	if got, want := s.NewFiles(current), []string{"d.c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected new %v, got %v", want, got)
	}

	deleted := s.DeletedFiles(map[string]bool{"a.c": true, "b.c": true, "d.c": true})
	if want := []string{"c.c"}; !reflect.DeepEqual(deleted, want) {
		t.Fatalf("expected deleted %v, got %v", want, deleted)
	}
}

func TestImpactedFilesFollowsIncludes(t *testing.T) {
	s := NewState()
	s.SetFileData(parser.FileFunctions{Path: "kernel/my_serial.c", Hash: "1", Includes: []string{"../common/serial_proto.h"}})
	s.SetFileData(parser.FileFunctions{Path: "user/libserial_user.c", Hash: "2", Includes: []string{"serial_user.h"}})
	s.SetFileData(parser.FileFunctions{Path: "user/serial_user.h", Hash: "3", Includes: []string{"../common/serial_proto.h"}})
	s.SetFileData(parser.FileFunctions{Path: "user/example_app.c", Hash: "4"})

	impacted := s.ImpactedFiles([]string{"common/serial_proto.h"}, nil)
	want := []string{"common/serial_proto.h", "kernel/my_serial.c", "user/libserial_user.c", "user/serial_user.h"}
	if !reflect.DeepEqual(impacted, want) {
		t.Fatalf("expected impacted %v, got %v", want, impacted)
	}
}

func TestSaveAndLoadManifest(t *testing.T) {
	dir := t.TempDir()
	s := NewState()
	s.Mode = "async"
	s.SetFileData(parser.FileFunctions{
		Path: "kernel/a.c",
		Hash: "h1",
		Functions: []parser.FunctionRecord{
			{File: "kernel/a.c", Name: "f", Line: 3, Source: "void f(void) {}"},
		},
	})
	if err := s.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !Exists(dir) {
		t.Fatalf("expected manifest to exist after save")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.RunID != s.RunID || loaded.RunID == "" {
		t.Fatalf("expected run id %q, got %q", s.RunID, loaded.RunID)
	}
	if loaded.FunctionCount() != 1 {
		t.Fatalf("expected one function, got %d", loaded.FunctionCount())
	}
	fn := loaded.Files["kernel/a.c"].Functions[0]
	if fn.Hash != parser.Fingerprint("void f(void) {}") {
		t.Fatalf("unexpected function hash %q", fn.Hash)
	}
}

func TestMigrateStateFillsVersions(t *testing.T) {
	s := &State{}
	migrateState(s)
	if s.Version != CurrentStateVersion || s.ExtractorVersion != CurrentExtractorVersion {
		t.Fatalf("expected versions to be filled, got %+v", s)
	}
	if s.Files == nil || s.OutputHashes == nil {
		t.Fatalf("expected maps to be initialized")
	}
}
