package handlers

import (
	"context"
	"net/http"
	"testing"
)

func newExtractorHandler(t *testing.T) *ExtractorHandler {
	t.Helper()
	repos := newTestRepos(t)
	services := newTestServices(t, repos, `{}`)
	return NewExtractorHandler(services.Extractors)
}

func TestListExtractors(t *testing.T) {
	h := newExtractorHandler(t)

	output, err := h.ListExtractors(context.Background(), &struct{}{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(output.Body) == 0 {
		t.Fatal("expected registered extractors, got none")
	}

	var crypto *ExtractorInfo
	for i := range output.Body {
		if output.Body[i].Name == "CryptoLLM" {
			crypto = &output.Body[i]
		}
	}
	if crypto == nil {
		t.Fatal("expected CryptoLLM in the catalog")
	}
	if crypto.ID != crypto.Name {
		t.Errorf("expected ID to equal name, got %q vs %q", crypto.ID, crypto.Name)
	}
	if crypto.OutputSchema == nil {
		t.Error("expected CryptoLLM to expose its schema")
	}
}

func TestGetExtractor(t *testing.T) {
	h := newExtractorHandler(t)

	output, err := h.GetExtractor(context.Background(), &GetExtractorInput{ID: "ProductLLM"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body.ID != "ProductLLM" {
		t.Errorf("expected ID ProductLLM, got %q", output.Body.ID)
	}
	if output.Body.Category != "product" {
		t.Errorf("expected category product, got %q", output.Body.Category)
	}
}

func TestGetExtractorNotFound(t *testing.T) {
	h := newExtractorHandler(t)

	_, err := h.GetExtractor(context.Background(), &GetExtractorInput{ID: "NoSuchLLM"})
	ae := asAPIError(t, err)
	if ae.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", ae.Status)
	}
	if ae.ErrorCode != "NotFound" {
		t.Errorf("expected error_code NotFound, got %q", ae.ErrorCode)
	}
}

func TestReloadExtractors(t *testing.T) {
	h := newExtractorHandler(t)

	list, err := h.ListExtractors(context.Background(), &struct{}{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	output, err := h.ReloadExtractors(context.Background(), &struct{}{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Body.Count != len(list.Body) {
		t.Errorf("expected reload count %d, got %d", len(list.Body), output.Body.Count)
	}
}
