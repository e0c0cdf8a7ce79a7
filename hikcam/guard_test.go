package hikcam_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/mvs/mvstest"
)

func TestGuardInitializesOnce(t *testing.T) {
	lib := mvstest.NewLibrary()
	g := hikcam.NewGuard(lib)
	for i := 0; i < 3; i++ {
		if err := g.Acquire(); err != nil {
			t.Fatal(err)
		}
	}
	if lib.Initialized != 1 {
		t.Errorf("expected 1 initialize, got %d", lib.Initialized)
	}
	for i := 0; i < 3; i++ {
		g.Release()
	}
	if lib.Finalized != 1 {
		t.Errorf("expected 1 finalize, got %d", lib.Finalized)
	}
	if g.Count() != 0 {
		t.Errorf("expected no references, got %d", g.Count())
	}
}

func TestGuardReleaseAtZeroIsNoop(t *testing.T) {
	lib := mvstest.NewLibrary()
	g := hikcam.NewGuard(lib)
	if err := g.Release(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if lib.Finalized != 0 || g.Count() != 0 {
		t.Errorf("expected release at zero to do nothing, finalized=%d count=%d", lib.Finalized, g.Count())
	}
}

func TestGuardInitFailureTakesNoReference(t *testing.T) {
	lib := mvstest.NewLibrary()
	lib.Fail("Initialize", mvs.ELoadLibrary)
	g := hikcam.NewGuard(lib)
	err := g.Acquire()
	if !errors.Is(err, mvs.ELoadLibrary) {
		t.Errorf("expected MV_E_LOAD_LIBRARY, got %v", err)
	}
	if g.Count() != 0 {
		t.Errorf("expected no reference after failed init, got %d", g.Count())
	}
	lib.Fail("Initialize", mvs.OK)
	if err := g.Acquire(); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
}

func TestGuardConcurrent(t *testing.T) {
	lib := mvstest.NewLibrary()
	g := hikcam.NewGuard(lib)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(); err != nil {
				t.Error(err)
				return
			}
			g.Release()
		}()
	}
	wg.Wait()
	if g.Count() != 0 {
		t.Errorf("expected no references, got %d", g.Count())
	}
	if lib.Initialized != lib.Finalized {
		t.Errorf("expected every initialize to be matched by a finalize, got %d and %d", lib.Initialized, lib.Finalized)
	}
}
