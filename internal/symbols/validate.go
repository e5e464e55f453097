package symbols

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the structural invariants of the table: scope parent and child
// links agree, every symbol lives in the scope that indexes it. All issues are joined.
func (t *Table) Validate() error {
	var errs []error

	for idx := 1; idx < len(t.Scopes.data); idx++ {
		scopeID := ScopeID(idx) //nolint:gosec // bounded by Scopes.New
		scope := &t.Scopes.data[idx]
		if scope.Kind == ScopeInvalid {
			errs = append(errs, fmt.Errorf("scope %d has invalid kind", scopeID))
		}
		if scope.Parent.IsValid() {
			parent := t.Scopes.Get(scope.Parent)
			if parent == nil || scope.Parent == scopeID {
				errs = append(errs, fmt.Errorf("scope %d has invalid parent %d", scopeID, scope.Parent))
			} else if !slices.Contains(parent.Children, scopeID) {
				errs = append(errs, fmt.Errorf("scope %d parent %d missing backlink", scopeID, scope.Parent))
			}
		} else if scope.Kind != ScopeComponent {
			errs = append(errs, fmt.Errorf("scope %d (%s) has no parent", scopeID, scope.Kind))
		}
		for name, symID := range scope.NameIndex {
			sym := t.Symbols.Get(symID)
			switch {
			case sym == nil:
				errs = append(errs, fmt.Errorf("scope %d indexes unknown symbol %d", scopeID, symID))
			case sym.Scope != scopeID:
				errs = append(errs, fmt.Errorf("symbol %d indexed by scope %d but declared in %d", symID, scopeID, sym.Scope))
			case sym.Name != name:
				errs = append(errs, fmt.Errorf("symbol %d indexed under a different name", symID))
			}
		}
	}

	for idx, sym := range t.Symbols.Data() {
		symID := SymbolID(idx + 1) //nolint:gosec // bounded by Symbols.New
		if sym.Kind == SymbolInvalid {
			errs = append(errs, fmt.Errorf("symbol %d has invalid kind", symID))
		}
		if (sym.Kind == SymbolMember) != sym.Member.IsValid() {
			errs = append(errs, fmt.Errorf("symbol %d (%s) has inconsistent member link", symID, sym.Kind))
		}
		if t.Scopes.Get(sym.Scope) == nil {
			errs = append(errs, fmt.Errorf("symbol %d has invalid scope %d", symID, sym.Scope))
		}
	}

	return errors.Join(errs...)
}
