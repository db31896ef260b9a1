package htstable

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tariffshield/harrier/internal/domain"
)

// Provider serves the current Table snapshot and supports whole-table
// reload. Readers always see a complete table: a failed reload keeps
// the previous snapshot installed.
type Provider struct {
	current atomic.Pointer[Table]
	path    string
}

// NewProvider loads the initial table. With an empty path the built-in
// sample table is installed.
func NewProvider(path string) (*Provider, error) {
	p := &Provider{path: path}
	var t *Table
	if path == "" {
		t = SampleTable()
	} else {
		var err error
		t, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}
	p.current.Store(t)
	slog.Info("HTS table loaded",
		"version", t.Version(),
		"entries", t.Size())
	return p, nil
}

// Reload re-reads the configured CSV and swaps the snapshot in.
func (p *Provider) Reload() error {
	if p.path == "" {
		return fmt.Errorf("no table path configured, reload unavailable")
	}
	t, err := LoadFile(p.path)
	if err != nil {
		slog.Error("HTS table reload failed, keeping previous snapshot",
			"error", err)
		return err
	}
	p.current.Store(t)
	slog.Info("HTS table reloaded",
		"version", t.Version(),
		"entries", t.Size())
	return nil
}

// Snapshot returns the current table. Callers doing multiple lookups
// for one request should hold a single snapshot.
func (p *Provider) Snapshot() *Table {
	return p.current.Load()
}

// Lookup resolves a code against the current snapshot.
func (p *Provider) Lookup(code string) (*domain.TariffCode, bool) {
	return p.Snapshot().Lookup(code)
}

// Size returns the entry count of the current snapshot.
func (p *Provider) Size() int { return p.Snapshot().Size() }

// Version identifies the current snapshot.
func (p *Provider) Version() string { return p.Snapshot().Version() }
