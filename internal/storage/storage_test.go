package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"phylosim/internal/model"
)

func testRun(id, createdAt string) model.RunRecord {
	run := model.RunRecord{
		ID:           id,
		CreatedAtUTC: createdAt,
		Seed:         42,
		Scale:        1,
		GenomeLength: 8,
		Nodes:        3,
		Leaves:       2,
		Events:       5,
	}
	Stamp(&run)
	return run
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := testRun("run-1", "2026-01-01T00:00:00Z")
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	got, ok, err := s.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if got.ID != run.ID || got.Events != run.Events {
		t.Fatalf("run mismatch: %+v", got)
	}
	if _, ok, _ := s.GetRun(ctx, "nope"); ok {
		t.Fatal("unknown run must not be found")
	}

	nodes := []model.NodeMutations{{Name: "A", Events: []model.MutationEvent{{Position: 1, Time: 0.5, From: "A", To: "C"}}}}
	if err := s.SaveMutations(ctx, "run-1", nodes); err != nil {
		t.Fatalf("save mutations: %v", err)
	}
	gotNodes, ok, err := s.GetMutations(ctx, "run-1")
	if err != nil || !ok || len(gotNodes) != 1 || gotNodes[0].Events[0].String() != "A2C" {
		t.Fatalf("mutations round trip: ok=%v err=%v %+v", ok, err, gotNodes)
	}

	sites := []model.SiteInfo{{Position: 0, Rate: 1.5, Category: 0}}
	if err := s.SaveSiteInfo(ctx, "run-1", sites); err != nil {
		t.Fatalf("save sites: %v", err)
	}
	gotSites, ok, err := s.GetSiteInfo(ctx, "run-1")
	if err != nil || !ok || len(gotSites) != 1 || gotSites[0].Rate != 1.5 {
		t.Fatalf("site info round trip: ok=%v err=%v %+v", ok, err, gotSites)
	}

	leaves := []model.LeafSequence{{Name: "A", Sequence: "ACGT"}}
	if err := s.SaveLeafSequences(ctx, "run-1", leaves); err != nil {
		t.Fatalf("save leaves: %v", err)
	}
	gotLeaves, ok, err := s.GetLeafSequences(ctx, "run-1")
	if err != nil || !ok || len(gotLeaves) != 1 || gotLeaves[0].Sequence != "ACGT" {
		t.Fatalf("leaf sequences round trip: ok=%v err=%v %+v", ok, err, gotLeaves)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveRun(ctx, testRun(id, "2026-01-01T00:00:00Z")); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "c" || runs[2].ID != "a" {
		t.Fatalf("ordering: %+v", runs)
	}
	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "c" {
		t.Fatalf("limit: %+v", limited)
	}
}

func TestCodecVersionCheck(t *testing.T) {
	run := testRun("run-1", "2026-01-01T00:00:00Z")
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != run.ID {
		t.Fatalf("decoded run mismatch: %+v", decoded)
	}

	run.SchemaVersion = CurrentSchemaVersion + 1
	stale, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode stale: %v", err)
	}
	if _, err := DecodeRun(stale); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("stale schema: got %v, want ErrVersionMismatch", err)
	}
}

func TestNewStoreKinds(t *testing.T) {
	s, err := NewStore("", "")
	if err != nil {
		t.Fatalf("default kind: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("default kind: got %T", s)
	}
	if _, err := NewStore("bogus", ""); err == nil {
		t.Fatal("unsupported kind must fail")
	} else if !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("error should name the rejected kind: %v", err)
	}
	if err := CloseIfSupported(s); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
}
