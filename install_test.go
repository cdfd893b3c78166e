package rfcserver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nwbridge/rfc-server-go/descstore/memory"
	"github.com/nwbridge/rfc-server-go/native/nativetest"
	"github.com/nwbridge/rfc-server-go/rfc"
)

func writeRepoFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo.bin")
	if err := os.WriteFile(path, []byte("serialized repository"), 0o644); err != nil {
		t.Fatalf("write repo file: %v", err)
	}
	return path
}

func TestCachedMetadataDispatch(t *testing.T) {
	eng := nativetest.New()
	eng.FileContents["Z_CACHED"] = rfc.FunctionDescription{Name: "Z_CACHED"}
	path := writeRepoFile(t)

	var gotName string
	inst, err := InstallGenericHandlerFromRepository(eng, func(ctx context.Context, conn *Connection, call *FunctionCall) error {
		gotName = call.Name()
		return nil
	}, path, "R1", WithRegistry(NewCallbackRegistry()))
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer inst.Close()

	if info := eng.Invoke("Z_CACHED"); !info.OK() {
		t.Fatalf("Invoke = %+v, want OK", info)
	}
	if gotName != "Z_CACHED" {
		t.Fatalf("handler saw %q, want Z_CACHED", gotName)
	}
	if eng.Calls(nativetest.OpLoadRepository) != 1 {
		t.Fatalf("LoadRepository calls = %d, want 1", eng.Calls(nativetest.OpLoadRepository))
	}

	// Every lookup refreshes the repository.
	if info := eng.Invoke("Z_CACHED"); !info.OK() {
		t.Fatalf("second Invoke = %+v, want OK", info)
	}
	if eng.Calls(nativetest.OpLoadRepository) != 2 {
		t.Fatalf("LoadRepository calls = %d, want 2", eng.Calls(nativetest.OpLoadRepository))
	}
	// Cached mode never opens transient metadata connections.
	if eng.Calls(nativetest.OpOpenConnection) != 0 {
		t.Fatal("cached mode opened a live connection")
	}
}

func TestCachedMetadataMissingFileYieldsNoDispatch(t *testing.T) {
	eng := nativetest.New()
	path := filepath.Join(t.TempDir(), "repo.bin") // never created

	invoked := false
	inst, err := InstallGenericHandlerFromRepository(eng, func(ctx context.Context, conn *Connection, call *FunctionCall) error {
		invoked = true
		return nil
	}, path, "R1", WithRegistry(NewCallbackRegistry()))
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer inst.Close()

	info := eng.Invoke("Z_ANY")
	if info.OK() {
		t.Fatal("expected lookup failure for missing repository file")
	}
	if !strings.Contains(info.Message, "repo.bin") {
		t.Fatalf("failure does not name the file: %q", info.Message)
	}
	if eng.Calls(nativetest.OpLoadRepository) != 0 {
		t.Fatal("LoadRepository attempted despite failed open")
	}
	if invoked {
		t.Fatal("handler ran despite metadata failure")
	}
}

func TestCachedMetadataAbsentFunctionSurfacesLookupError(t *testing.T) {
	eng := nativetest.New()
	eng.FileContents["Z_PRESENT"] = rfc.FunctionDescription{Name: "Z_PRESENT"}
	path := writeRepoFile(t)

	inst, err := InstallGenericHandlerFromRepository(eng, okHandler, path, "R1", WithRegistry(NewCallbackRegistry()))
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer inst.Close()

	info := eng.Invoke("Z_ABSENT")
	if info.Code != rfc.NotFound || info.Key != "FU_NOT_FOUND" {
		t.Fatalf("info = %+v, want the repository lookup's NOT_FOUND", info)
	}
}

func TestDescriptionStoreShortCircuitsLiveLookups(t *testing.T) {
	eng := nativetest.New()
	eng.Live["Z_TEST"] = rfc.FunctionDescription{
		Name:       "Z_TEST",
		Parameters: []rfc.ParameterDescription{{Name: "VALUE", Direction: rfc.DirectionImport, Type: rfc.TypeString}},
	}
	store := memory.New()
	defer store.Close()

	inst, err := InstallGenericHandler(eng, testParams, okHandler,
		WithRegistry(NewCallbackRegistry()),
		WithDescriptionStore(store, "DEV", 0),
	)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer inst.Close()

	if info := eng.Invoke("Z_TEST"); !info.OK() {
		t.Fatalf("first Invoke = %+v, want OK", info)
	}
	if info := eng.Invoke("Z_TEST"); !info.OK() {
		t.Fatalf("second Invoke = %+v, want OK", info)
	}

	if got := eng.Calls(nativetest.OpOpenConnection); got != 1 {
		t.Fatalf("live lookups = %d, want 1 (second resolved from the store)", got)
	}
	if got := eng.Calls(nativetest.OpCreateFunctionDesc); got != 1 {
		t.Fatalf("CreateFunctionDesc calls = %d, want 1", got)
	}

	// The cached value survives the round-trip intact.
	desc, ok, err := store.Get(context.Background(), "DEV", "Z_TEST")
	if err != nil || !ok {
		t.Fatalf("store.Get = %v ok=%v", err, ok)
	}
	if _, ok := desc.Parameter("VALUE"); !ok {
		t.Fatal("stored description lost its parameters")
	}
}

func TestDescriptionStoreFailureDegradesToLiveLookup(t *testing.T) {
	eng := nativetest.New()
	eng.Live["Z_TEST"] = rfc.FunctionDescription{Name: "Z_TEST"}
	store := memory.New()
	defer store.Close()
	if err := store.Set(context.Background(), "DEV", "Z_TEST", rfc.FunctionDescription{Name: "Z_TEST"}, 0); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	// Even with a seeded store, a failing CreateFunctionDesc must fall back
	// to the live path rather than failing the call.
	eng.Fail(nativetest.OpCreateFunctionDesc, rfc.Errorf(rfc.InvalidParameter, "", "rejected"))

	inst, err := InstallGenericHandler(eng, testParams, okHandler,
		WithRegistry(NewCallbackRegistry()),
		WithDescriptionStore(store, "DEV", 0),
	)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer inst.Close()

	if info := eng.Invoke("Z_TEST"); !info.OK() {
		t.Fatalf("Invoke = %+v, want OK via live fallback", info)
	}
	if eng.Calls(nativetest.OpOpenConnection) != 1 {
		t.Fatal("live fallback did not run")
	}
}

func TestDispatchMetrics(t *testing.T) {
	eng := nativetest.New()
	eng.Live["Z_GOOD"] = rfc.FunctionDescription{Name: "Z_GOOD"}
	eng.Live["Z_BAD"] = rfc.FunctionDescription{Name: "Z_BAD"}

	promReg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Registry: promReg})

	inst, err := InstallGenericHandler(eng, testParams, func(ctx context.Context, conn *Connection, call *FunctionCall) error {
		if call.Name() == "Z_BAD" {
			return errors.New("nope")
		}
		return nil
	}, WithRegistry(NewCallbackRegistry()), WithMetrics(m))
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer inst.Close()

	eng.Invoke("Z_GOOD")
	eng.Invoke("Z_GOOD")
	eng.Invoke("Z_BAD")

	if got := testutil.ToFloat64(m.callsTotal.WithLabelValues("Z_GOOD", "OK")); got != 2 {
		t.Fatalf("Z_GOOD OK count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.callsTotal.WithLabelValues("Z_BAD", "EXTERNAL_FAILURE")); got != 1 {
		t.Fatalf("Z_BAD failure count = %v, want 1", got)
	}
}
