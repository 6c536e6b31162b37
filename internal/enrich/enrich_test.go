package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gearindex/marketpulse/internal/catalog"
	"github.com/gearindex/marketpulse/internal/model"
)

func newTestStore(t *testing.T) *catalog.FileStore {
	t.Helper()
	store, err := catalog.NewFileStore(filepath.Join(t.TempDir(), "catalog.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func tb03Enrichment() *Enrichment {
	return &Enrichment{
		Specs: []model.Spec{
			{Name: "Synthesis", Value: "Analog modeling (ACB)"},
			{Name: "Voices", Value: "1"},
			{Name: "Sequencer", Value: "16-step"},
			{Name: "Power", Value: "4x AA or USB"},
		},
		Description: "Boutique-series recreation of the TB-303 bass synthesizer.",
	}
}

func TestCoordinator_FetchesAndPersists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, err := store.Insert(ctx, &model.CatalogEntry{Brand: "Roland", Model: "TB-03"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	entry, _ := store.FindByID(ctx, id)

	collab := NewMockCollaborator()
	collab.Seed("Roland", "TB-03", tb03Enrichment())

	specs := NewCoordinator(collab, store).TriggerIfMissing(ctx, entry)
	if len(specs) != 4 {
		t.Fatalf("Expected 4 specs returned, got %d", len(specs))
	}

	stored, err := store.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(stored.Specs) != 4 {
		t.Errorf("Specs not persisted: %d", len(stored.Specs))
	}
	if stored.Description == "" {
		t.Error("Description not persisted")
	}
}

func TestCoordinator_SkipsWhenSpecsPresent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	entry := &model.CatalogEntry{
		Brand: "Roland", Model: "TB-03",
		Specs: []model.Spec{{Name: "Voices", Value: "1"}},
	}
	id, _ := store.Insert(ctx, entry)
	entry, _ = store.FindByID(ctx, id)

	collab := NewMockCollaborator()
	specs := NewCoordinator(collab, store).TriggerIfMissing(ctx, entry)

	if collab.Calls() != 0 {
		t.Errorf("Collaborator called %d times for an entry with specs", collab.Calls())
	}
	if len(specs) != 1 {
		t.Errorf("Expected stored specs returned, got %d", len(specs))
	}
}

func TestCoordinator_FailureIsSilent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, _ := store.Insert(ctx, &model.CatalogEntry{Brand: "Moog", Model: "Minitaur"})
	entry, _ := store.FindByID(ctx, id)

	collab := NewMockCollaborator()
	collab.FailWith(errors.New("service down"))

	if specs := NewCoordinator(collab, store).TriggerIfMissing(ctx, entry); specs != nil {
		t.Errorf("Expected nil specs on failure, got %+v", specs)
	}

	stored, _ := store.FindByID(ctx, id)
	if len(stored.Specs) != 0 {
		t.Error("Failure must not write specs")
	}
}

func TestCoordinator_UnavailableCollaborator(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, _ := store.Insert(ctx, &model.CatalogEntry{Brand: "Korg", Model: "MS-20"})
	entry, _ := store.FindByID(ctx, id)

	collab := NewMockCollaborator()
	collab.SetAvailable(false)

	if specs := NewCoordinator(collab, store).TriggerIfMissing(ctx, entry); specs != nil {
		t.Errorf("Unavailable collaborator should yield nil, got %+v", specs)
	}
	if collab.Calls() != 0 {
		t.Error("Unavailable collaborator must not be called")
	}
}

func TestClient_GetDeepEnrichment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/enrich" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("brand") != "Roland" {
			t.Errorf("Missing brand param: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"data":{
			"specs":[{"name":"Voices","value":"1"}],
			"description":"Bass synthesizer."}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "token")
	e, err := c.GetDeepEnrichment(context.Background(), "Roland", "TB-03")
	if err != nil {
		t.Fatalf("GetDeepEnrichment: %v", err)
	}
	if e == nil || len(e.Specs) != 1 || e.Description == "" {
		t.Errorf("Unexpected enrichment: %+v", e)
	}
}

func TestClient_Available(t *testing.T) {
	if NewClient("", "").Available() {
		t.Error("Client without base URL must not be available")
	}
}
