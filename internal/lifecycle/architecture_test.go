package lifecycle

import (
	"testing"

	"intactcore/testutil"
)

func TestLifecycleDoesNotImportPersistence(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.PersistenceImportForbidden, "transitions operate on in-memory releasables")
}
