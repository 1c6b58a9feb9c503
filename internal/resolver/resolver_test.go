package resolver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/lherron/foldermerge/internal/domain"
)

func TestPolicyAlwaysReturnsConfiguredChoice(t *testing.T) {
	p := Policy{Choice: domain.ChoicePreferOlder}
	got, err := p.Resolve(context.Background(), domain.Candidate{RelPath: "x"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != domain.ChoicePreferOlder {
		t.Errorf("expected prefer_older, got %s", got)
	}
}

func TestScriptedReturnsMappedChoice(t *testing.T) {
	s := Scripted{Answers: map[string]domain.Choice{"a.txt": domain.ChoicePreferNewer}}
	got, err := s.Resolve(context.Background(), domain.Candidate{RelPath: "a.txt"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != domain.ChoicePreferNewer {
		t.Errorf("expected prefer_newer, got %s", got)
	}
}

func TestScriptedErrorsOnUnknownPath(t *testing.T) {
	s := Scripted{Answers: map[string]domain.Choice{}}
	_, err := s.Resolve(context.Background(), domain.Candidate{RelPath: "unknown.txt"})
	if err == nil {
		t.Fatal("expected error for unscripted path")
	}
}

func TestInteractiveAbortsOnClosedStdin(t *testing.T) {
	r := Interactive{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	_, err := r.Resolve(context.Background(), domain.Candidate{RelPath: "a.txt"})
	if err == nil {
		t.Fatal("expected error on closed stdin, got nil")
	}
	if _, ok := err.(*domain.ResolverAbortedError); !ok {
		t.Fatalf("expected *domain.ResolverAbortedError, got %T: %v", err, err)
	}
}

func TestInteractiveAbortsOnClosedStdinAfterInspect(t *testing.T) {
	r := Interactive{In: strings.NewReader("3\n"), Out: &bytes.Buffer{}}
	_, err := r.Resolve(context.Background(), domain.Candidate{RelPath: "a.txt", AbsPathA: "/nonexistent-a", AbsPathB: "/nonexistent-b"})
	if err == nil {
		t.Fatal("expected error after inspect on closed stdin, got nil")
	}
	if _, ok := err.(*domain.ResolverAbortedError); !ok {
		t.Fatalf("expected *domain.ResolverAbortedError, got %T: %v", err, err)
	}
}
