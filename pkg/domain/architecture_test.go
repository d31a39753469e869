package domain

import (
	"testing"

	"intactcore/testutil"
)

// TestDomainDoesNotImportInternal keeps the object model free of any
// implementation package so every backend can depend on it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must stay implementation free")
}

func TestDomainImportsOnlyStandardLibrary(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdPartyImportForbidden, "domain depends on the standard library only")
}
