package domain

import (
	"strings"
	"testing"

	"trialviz/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of pipeline
// and infrastructure packages; only pkg/datasetapi may be shared.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return testutil.InternalImportForbidden(path) ||
			(strings.HasPrefix(path, "trialviz/") && path != "trialviz/pkg/datasetapi")
	}, "domain must not depend on implementation packages")
}
