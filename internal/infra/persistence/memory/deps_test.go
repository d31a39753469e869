package memory

import (
	"go/build"
	"strings"
	"testing"
)

var allowedInternalImports = map[string]struct{}{
	"intactcore/pkg/domain":         {},
	"intactcore/internal/accession": {},
	"intactcore/internal/graph":     {},
	"intactcore/internal/logging":   {},
	"intactcore/internal/records":   {},
}

func TestImportsAreDomainOrSupport(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "intactcore/") {
			continue
		}
		if _, ok := allowedInternalImports[imp]; ok {
			continue
		}
		t.Fatalf("unexpected dependency: %s", imp)
	}
}
