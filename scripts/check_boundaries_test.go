package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, root string, rel string, src string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCollectViolationsAcceptsAllowedImports(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "competition/rating-engine/domain/services/rating.go", `package services

import (
	"math"

	"golang.org/x/text/cases"
	"tandem/contexts/competition/rating-engine/domain/entities"
)
`)
	writeSource(t, root, "competition/rating-engine/application/service.go", `package application

import (
	"go.opentelemetry.io/otel/attribute"
	"tandem/contexts/competition/rating-engine/ports"
	"tandem/internal/shared/events"
)
`)
	writeSource(t, root, "competition/rating-engine/adapters/postgres/repository.go", `package postgres

import "gorm.io/gorm"
`)

	if violations := collectViolations(root); len(violations) != 0 {
		t.Fatalf("expected no violations, got %+v", violations)
	}
}

func TestCollectViolationsReportsForbiddenImports(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "competition/rating-engine/domain/entities/rating.go", `package entities

import (
	"gorm.io/gorm"
	"tandem/internal/platform/db"
)
`)
	writeSource(t, root, "competition/rating-engine/application/service.go", `package application

import (
	"tandem/contexts/competition/rating-engine/adapters/memory"
	"tandem/contexts/competition/tournament-engine/ports"
)
`)

	violations := collectViolations(root)
	rules := map[string]int{}
	for _, v := range violations {
		rules[v.Rule]++
	}
	expected := map[string]int{
		"domain import is outside explicit allowlist":      2,
		"domain must not import runtime infrastructure":    1,
		"application must not import adapters":             1,
		"cross-module imports are forbidden":               1,
		"application import is outside explicit allowlist": 2,
	}
	for rule, count := range expected {
		if rules[rule] != count {
			t.Fatalf("expected %d %q violations, got %d (%+v)", count, rule, rules[rule], violations)
		}
	}
}

func TestIsStdlib(t *testing.T) {
	cases := map[string]bool{
		"net/http":            true,
		"context":             true,
		"gorm.io/gorm":        false,
		"tandem/internal/xyz": false,
	}
	for path, expected := range cases {
		if got := isStdlib(path); got != expected {
			t.Fatalf("isStdlib(%q): expected %v, got %v", path, expected, got)
		}
	}
}
